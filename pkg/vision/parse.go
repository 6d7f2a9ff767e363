package vision

// ParseResponse translates the chosen directive of a response into a device
// operation. It is a pure function of its input.
//
// Click targets the center of the element's bbox while type targets the
// center of its mesh. The two rectangles are expected to agree; the split
// follows the service contract and must not be unified here.
func ParseResponse(resp *Response) (*ParsedAction, error) {
	directive := resp.ChosenAction

	switch directive.Action {
	case ActionClick:
		box, err := resp.ChosenBox()
		if err != nil {
			return nil, err
		}
		center := box.BBox.Center()
		return &ParsedAction{Method: MethodClick, Coordinates: &center}, nil

	case ActionType:
		if directive.InputText == nil || *directive.InputText == "" {
			return nil, MissingField("input_text")
		}
		box, err := resp.ChosenBox()
		if err != nil {
			return nil, err
		}
		center := box.Mesh.Center()
		return &ParsedAction{Method: MethodFill, Coordinates: &center, Value: *directive.InputText}, nil

	case ActionScroll:
		if directive.ScrollDirection == nil {
			return nil, MissingField("scroll_direction")
		}
		return &ParsedAction{Method: MethodScroll, Value: *directive.ScrollDirection}, nil
	}

	return nil, UnsupportedAction(directive.Action)
}
