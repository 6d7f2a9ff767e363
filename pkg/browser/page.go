package model

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// CreatePageParams represents the request parameters for opening a page.
type CreatePageParams struct {
	URL       string                    `json:"url"`
	WaitUntil playwright.WaitUntilState `json:"wait_until,omitempty"` // "load", "domcontentloaded", "networkidle"
	Timeout   int                       `json:"timeout,omitempty"`    // milliseconds
	Width     int                       `json:"width,omitempty"`
	Height    int                       `json:"height,omitempty"`
}

// CreatePageResult represents the response from opening a page.
type CreatePageResult struct {
	PageID string `json:"page_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// NewCreatePageResult creates a new CreatePageResult.
func NewCreatePageResult(pageID, url, title string) CreatePageResult {
	return CreatePageResult{
		PageID: pageID,
		URL:    url,
		Title:  title,
	}
}

// PageInfo describes a managed page.
type PageInfo struct {
	PageID       string    `json:"page_id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	LastAccessed time.Time `json:"last_accessed"`
}

// ListPagesResult represents the response for listing pages.
type ListPagesResult struct {
	Pages []PageInfo `json:"pages"`
}

// ReclaimResult lists the pages closed for being idle.
type ReclaimResult struct {
	ClosedIDs []string `json:"closed_ids"`
}
