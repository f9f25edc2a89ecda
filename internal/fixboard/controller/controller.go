// Package controller owns the mutable session state of the dashboard and
// reacts to user intents. Every mutation round-trips through the record
// store and then reloads the full collection, so the view always reflects
// server-assigned defaults and tolerates concurrent external writes.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/yshiraki/fixboard/internal/fixboard/engine"
	"github.com/yshiraki/fixboard/internal/fixboard/issue"
	"github.com/yshiraki/fixboard/internal/fixboard/store"
)

// Store is the slice of the record store client the controller needs.
type Store interface {
	List(ctx context.Context) ([]issue.Issue, error)
	Get(ctx context.Context, id string) (*issue.Issue, error)
	Create(ctx context.Context, draft issue.Draft) (*issue.Issue, error)
	Update(ctx context.Context, id string, draft issue.Draft) (*issue.Issue, error)
	Apply(ctx context.Context, id string, patch issue.Patch) (*issue.Issue, error)
	Delete(ctx context.Context, id string) error
}

// ViewState is the session state: which slice of the list the user is
// looking at and which record, if any, is mid-edit.
type ViewState struct {
	StatusFilter issue.Status // empty means all
	Search       string
	SortBy       engine.Field
	Order        engine.Order
	Page         int
	EditingID    string
}

// Notice is a transient user-facing message, distinct from the logging
// channel.
type Notice struct {
	Text string
}

// Controller re-derives the engine output whenever the session state or
// the base collection changes.
type Controller struct {
	store    Store
	pageSize int

	state    ViewState
	all      []issue.Issue
	filtered []issue.Issue

	submitting atomic.Bool
}

// New creates a controller over the given store with the backend's
// default view: all statuses, newest first.
func New(st Store, pageSize int) *Controller {
	if !engine.ValidPageSize(pageSize) {
		pageSize = engine.PageSizes[0]
	}
	return &Controller{
		store:    st,
		pageSize: pageSize,
		state: ViewState{
			SortBy: engine.FieldCreatedAt,
			Order:  engine.Descending,
			Page:   1,
		},
	}
}

// Reload fetches a fresh base collection and re-derives the filtered view.
// The collection is replaced wholesale, never patched in place.
func (c *Controller) Reload(ctx context.Context) error {
	issues, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("cannot load issues: %w", err)
	}
	c.all = issues
	c.refresh()
	return nil
}

// refresh recomputes the filtered, sorted view. Page changes bypass it:
// they only re-slice.
func (c *Controller) refresh() {
	c.filtered = engine.Filter(c.all, c.state.StatusFilter, c.state.Search)
	engine.Sort(c.filtered, c.state.SortBy, c.state.Order)
}

// State returns a copy of the current session state.
func (c *Controller) State() ViewState { return c.state }

// Collection returns the full fetched record set in backend order.
func (c *Controller) Collection() []issue.Issue { return c.all }

// Filtered returns the current filtered, sorted view across all pages,
// the set the CSV export operates on.
func (c *Controller) Filtered() []issue.Issue { return c.filtered }

// Page returns the slice of the view to display.
func (c *Controller) Page() engine.Page {
	return engine.Paginate(c.filtered, c.state.Page, c.pageSize)
}

// Stats counts the full collection per status.
func (c *Controller) Stats() map[issue.Status]int {
	stats := make(map[issue.Status]int, len(issue.Statuses()))
	for _, record := range c.all {
		stats[record.Status]++
	}
	return stats
}

// SetStatusFilter applies a status filter. Selecting the already-active
// status clears it: the filter cards act as toggles. Resets to page 1.
func (c *Controller) SetStatusFilter(status issue.Status) {
	if c.state.StatusFilter == status {
		c.state.StatusFilter = ""
	} else {
		c.state.StatusFilter = status
	}
	c.state.Page = 1
	c.refresh()
}

// SetSearch applies a new search text and resets to page 1. Callers are
// expected to debounce keystrokes before invoking this.
func (c *Controller) SetSearch(text string) {
	c.state.Search = text
	c.state.Page = 1
	c.refresh()
}

// ToggleSort selects a sort field. Re-selecting the current field flips
// the direction; a new field starts at its default direction. Resets to
// page 1.
func (c *Controller) ToggleSort(field engine.Field) {
	if c.state.SortBy == field {
		c.state.Order = c.state.Order.Flip()
	} else {
		c.state.SortBy = field
		c.state.Order = engine.DefaultOrder(field)
	}
	c.state.Page = 1
	c.refresh()
}

// SetPage moves to the requested page. Requests outside [1, totalPages]
// are rejected as no-ops. The filtered view is not recomputed.
func (c *Controller) SetPage(page int) {
	totalPages := c.Page().TotalPages
	if page < 1 || page > totalPages {
		return
	}
	c.state.Page = page
}

// BeginEdit re-fetches the record by id rather than reusing the cached
// list, so an edit started after an external change sees current values.
func (c *Controller) BeginEdit(ctx context.Context, id string) (*issue.Issue, error) {
	record, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("issue is no longer present: %w", err)
		}
		return nil, fmt.Errorf("cannot load issue: %w", err)
	}
	c.state.EditingID = id
	return record, nil
}

// EndEdit abandons the current edit session.
func (c *Controller) EndEdit() { c.state.EditingID = "" }

// Detail re-fetches a record for the read-only detail view without
// opening an edit session.
func (c *Controller) Detail(ctx context.Context, id string) (*issue.Issue, error) {
	record, err := c.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("issue is no longer present: %w", err)
		}
		return nil, fmt.Errorf("cannot load issue: %w", err)
	}
	return record, nil
}

// Submit validates and persists the draft: an update when an edit session
// is active, a create otherwise. A submission already in flight makes
// this a silent no-op; the duplicate is dropped, not queued. After a
// successful round trip the collection is reloaded and the edit session
// ends.
func (c *Controller) Submit(ctx context.Context, draft issue.Draft) (Notice, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		logrus.Debug("submission already in flight, ignoring")
		return Notice{}, nil
	}
	defer c.submitting.Store(false)

	if err := draft.Validate(); err != nil {
		return Notice{}, err
	}

	editing := c.state.EditingID
	var err error
	if editing != "" {
		_, err = c.store.Update(ctx, editing, draft)
	} else {
		_, err = c.store.Create(ctx, draft)
	}
	if err != nil {
		logrus.WithError(err).WithField("editing", editing).Error("cannot save issue")
		return Notice{}, fmt.Errorf("cannot save issue: %w", err)
	}

	c.state.EditingID = ""
	if err := c.Reload(ctx); err != nil {
		return Notice{}, err
	}

	if editing != "" {
		return Notice{Text: "issue updated"}, nil
	}
	return Notice{Text: "issue created"}, nil
}

// Delete removes a record and reloads the collection.
func (c *Controller) Delete(ctx context.Context, id string) (Notice, error) {
	if err := c.store.Delete(ctx, id); err != nil {
		logrus.WithError(err).WithField("id", id).Error("cannot delete issue")
		return Notice{}, fmt.Errorf("cannot delete issue: %w", err)
	}
	if err := c.Reload(ctx); err != nil {
		return Notice{}, err
	}
	return Notice{Text: "issue deleted"}, nil
}

// ChangeStatus patches a single record's status. Even when the patch
// fails the collection is reloaded, resynchronizing the view with the
// server's actual state.
func (c *Controller) ChangeStatus(ctx context.Context, id string, status issue.Status) (Notice, error) {
	if !status.Valid() {
		return Notice{}, fmt.Errorf("unknown status %q", status)
	}

	_, err := c.store.Apply(ctx, id, issue.Patch{Status: &status})
	if err != nil {
		logrus.WithError(err).WithField("id", id).Error("cannot change status")
		if reloadErr := c.Reload(ctx); reloadErr != nil {
			logrus.WithError(reloadErr).Warn("cannot resynchronize after failed status change")
		}
		return Notice{}, fmt.Errorf("cannot change status: %w", err)
	}

	if err := c.Reload(ctx); err != nil {
		return Notice{}, err
	}
	return Notice{Text: fmt.Sprintf("status changed to %s", status)}, nil
}
