package powerapi

import (
	"context"
)

// Users lists every user.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.p.Get(ctx, "/api/users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserByID fetches one user.
func (c *Client) UserByID(ctx context.Context, id string) (*User, error) {
	uid, err := parseID("userId", id)
	if err != nil {
		return nil, err
	}
	var out User
	if err := c.p.Get(ctx, "/api/users/"+uid, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser replaces the editable fields of a user.
func (c *Client) UpdateUser(ctx context.Context, id string, user User) (*User, error) {
	uid, err := parseID("userId", id)
	if err != nil {
		return nil, err
	}
	var out User
	if err := c.p.Put(ctx, "/api/users/"+uid, user, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	uid, err := parseID("userId", id)
	if err != nil {
		return err
	}
	return c.p.Delete(ctx, "/api/users/"+uid, nil)
}

// UserByUsername looks a user up by login name.
func (c *Client) UserByUsername(ctx context.Context, username string) (*User, error) {
	name, err := requireText("username", username)
	if err != nil {
		return nil, err
	}
	var out *User
	if err := c.p.Get(ctx, "/api/users/username/"+segment(name), &out); err != nil {
		return nil, err
	}
	return out, nil
}
