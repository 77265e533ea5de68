package powerapi

import "context"

// KnowledgeBase lists active knowledge-base entries.
func (c *Client) KnowledgeBase(ctx context.Context) ([]KnowledgeBase, error) {
	var out []KnowledgeBase
	if err := c.p.Get(ctx, "/api/knowledge-base", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceTypes lists the service types used to group entries.
func (c *Client) ServiceTypes(ctx context.Context) ([]ServiceType, error) {
	var out []ServiceType
	if err := c.p.Get(ctx, "/api/service-types", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PopularQuestions lists the most-hit entries.
func (c *Client) PopularQuestions(ctx context.Context) ([]KnowledgeBase, error) {
	var out []KnowledgeBase
	if err := c.p.Get(ctx, "/api/knowledge-base/popular", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// KnowledgeBaseByServiceType lists entries of one service type.
func (c *Client) KnowledgeBaseByServiceType(ctx context.Context, serviceTypeID string) ([]KnowledgeBase, error) {
	id, err := parseID("serviceTypeId", serviceTypeID)
	if err != nil {
		return nil, err
	}
	var out []KnowledgeBase
	if err := c.p.Get(ctx, "/api/knowledge-base/service-type/"+id, &out); err != nil {
		return nil, err
	}
	return out, nil
}
