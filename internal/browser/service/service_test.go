package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	service "github.com/babelcloud/vlm-bridge/internal/browser/service"
	model "github.com/babelcloud/vlm-bridge/pkg/browser"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

func TestNewBrowserServiceRequiresReasoner(t *testing.T) {
	_, err := service.NewBrowserService(service.Options{})
	assert.Error(t, err)
}

func TestActTypesIntoChosenElement(t *testing.T) {
	page := newFakePage("https://example.com")

	var gotInstruction string
	var gotImage []byte
	reasoner := reasonerFunc(func(_ context.Context, instruction string, image []byte) (*vision.Response, error) {
		gotInstruction, gotImage = instruction, image
		return typeResponse(), nil
	})
	svc, dev := setupService(t, reasoner, 0)
	t.Cleanup(func() { svc.Close() })

	pageID := svc.AttachPage(page)
	result, err := svc.Act(context.Background(), pageID, model.ActParams{Instruction: "Type BrowserBase in the search box"})
	require.NoError(t, err)

	assert.Equal(t, "Type BrowserBase in the search box", gotInstruction)
	assert.Equal(t, page.shot, gotImage)

	assert.Equal(t, pageID, result.PageID)
	assert.Equal(t, vision.MethodFill, result.Action.Method)
	require.NotNil(t, result.Action.Coordinates)
	assert.Equal(t, vision.Point{X: 200, Y: 115}, *result.Action.Coordinates)
	assert.Equal(t, "BrowserBase", result.Action.Value)
	assert.Equal(t, 1, result.ChosenElementIndex)
	assert.Equal(t, 2, result.ElementCount)
	assert.NotEmpty(t, result.Explanation)

	assert.Equal(t, []string{"move(200,115,10)", "click(200,115)", "wait", "type(BrowserBase)"}, dev.Calls())
}

func TestActErrors(t *testing.T) {
	t.Run("empty instruction", func(t *testing.T) {
		svc, dev := setupService(t, staticReasoner(typeResponse()), 0)
		pageID := svc.AttachPage(newFakePage("about:blank"))

		_, err := svc.Act(context.Background(), pageID, model.ActParams{Instruction: "  "})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
		assert.Empty(t, dev.Calls())
	})

	t.Run("unknown page", func(t *testing.T) {
		svc, _ := setupService(t, staticReasoner(typeResponse()), 0)

		_, err := svc.Act(context.Background(), "missing", model.ActParams{Instruction: "click"})
		assert.ErrorIs(t, err, service.ErrPageNotFound)
	})

	t.Run("screenshot failure", func(t *testing.T) {
		called := false
		svc, _ := setupService(t, reasonerFunc(func(context.Context, string, []byte) (*vision.Response, error) {
			called = true
			return typeResponse(), nil
		}), 0)
		page := newFakePage("about:blank")
		page.shotErr = errors.New("target closed")
		pageID := svc.AttachPage(page)

		_, err := svc.Act(context.Background(), pageID, model.ActParams{Instruction: "click"})
		assert.Error(t, err)
		assert.False(t, called)
	})

	t.Run("reasoning error keeps its kind", func(t *testing.T) {
		svc, dev := setupService(t, reasonerFunc(func(context.Context, string, []byte) (*vision.Response, error) {
			return nil, vision.Upstream(503, "overloaded")
		}), 0)
		pageID := svc.AttachPage(newFakePage("about:blank"))

		_, err := svc.Act(context.Background(), pageID, model.ActParams{Instruction: "click"})
		assert.Equal(t, vision.KindUpstream, vision.KindOf(err))
		assert.Empty(t, dev.Calls())
	})

	t.Run("unsupported directive is not executed", func(t *testing.T) {
		resp := typeResponse()
		resp.ChosenAction = vision.ActionDirective{Action: "hover"}
		svc, dev := setupService(t, staticReasoner(resp), 0)
		pageID := svc.AttachPage(newFakePage("about:blank"))

		_, err := svc.Act(context.Background(), pageID, model.ActParams{Instruction: "hover it"})
		assert.Equal(t, vision.KindUnsupportedAction, vision.KindOf(err))
		assert.Empty(t, dev.Calls())
	})
}

func TestActRejectsConcurrentActionsOnSamePage(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	reasoner := reasonerFunc(func(context.Context, string, []byte) (*vision.Response, error) {
		close(entered)
		<-release
		return typeResponse(), nil
	})
	svc, _ := setupService(t, reasoner, 0)
	pageID := svc.AttachPage(newFakePage("about:blank"))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Act(context.Background(), pageID, model.ActParams{Instruction: "first"})
		done <- err
	}()
	<-entered

	_, err := svc.Act(context.Background(), pageID, model.ActParams{Instruction: "second"})
	assert.ErrorIs(t, err, service.ErrPageBusy)

	close(release)
	assert.NoError(t, <-done)
}

func TestListAndClosePages(t *testing.T) {
	svc, _ := setupService(t, staticReasoner(typeResponse()), 0)
	a := newFakePage("https://a.example")
	b := newFakePage("https://b.example")
	idA := svc.AttachPage(a)
	idB := svc.AttachPage(b)

	list := svc.ListPages()
	require.Len(t, list.Pages, 2)
	urls := map[string]string{}
	for _, p := range list.Pages {
		urls[p.PageID] = p.URL
		assert.False(t, p.LastAccessed.IsZero())
	}
	assert.Equal(t, map[string]string{idA: "https://a.example", idB: "https://b.example"}, urls)
	assert.Less(t, list.Pages[0].PageID, list.Pages[1].PageID)

	require.NoError(t, svc.ClosePage(idA))
	assert.True(t, a.isClosed())
	assert.ErrorIs(t, svc.ClosePage(idA), service.ErrPageNotFound)

	_, err := svc.Screenshot(idA)
	assert.ErrorIs(t, err, service.ErrPageNotFound)

	shot, err := svc.Screenshot(idB)
	require.NoError(t, err)
	assert.Equal(t, b.shot, shot)

	require.NoError(t, svc.Close())
	assert.True(t, b.isClosed())
	assert.Empty(t, svc.ListPages().Pages)
}

func TestListPagesLogsUnreadableTitle(t *testing.T) {
	hook := test.NewLocal(logger.New().Logger)
	defer hook.Reset()

	svc, _ := setupService(t, staticReasoner(typeResponse()), 0)
	page := newFakePage("https://a.example")
	page.titleErr = errors.New("target closed")
	id := svc.AttachPage(page)

	list := svc.ListPages()
	require.Len(t, list.Pages, 1)
	assert.Equal(t, "", list.Pages[0].Title)
	assert.Equal(t, "https://a.example", list.Pages[0].URL)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, id) && strings.Contains(entry.Message, "target closed") {
			warned = true
		}
	}
	assert.True(t, warned, "title failure should be logged")
}

func TestCreatePageValidatesURL(t *testing.T) {
	svc, _ := setupService(t, staticReasoner(typeResponse()), 0)
	_, err := svc.CreatePage(model.CreatePageParams{})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestReclaimClosesIdlePages(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	reasoner := reasonerFunc(func(context.Context, string, []byte) (*vision.Response, error) {
		close(entered)
		<-release
		return typeResponse(), nil
	})
	svc, _ := setupService(t, reasoner, time.Millisecond)

	idle := newFakePage("https://idle.example")
	busy := newFakePage("https://busy.example")
	idleID := svc.AttachPage(idle)
	busyID := svc.AttachPage(busy)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Act(context.Background(), busyID, model.ActParams{Instruction: "wait"})
		done <- err
	}()
	<-entered
	time.Sleep(20 * time.Millisecond)

	result, err := svc.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{idleID}, result.ClosedIDs)
	assert.True(t, idle.isClosed())
	assert.False(t, busy.isClosed())

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, svc.ListPages().Pages, 1)
}

func TestReclaimDisabled(t *testing.T) {
	svc, _ := setupService(t, staticReasoner(typeResponse()), 0)
	svc.AttachPage(newFakePage("about:blank"))

	result, err := svc.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.ClosedIDs)
	assert.Len(t, svc.ListPages().Pages, 1)
}
