package usecase

import (
	"context"
	"fmt"
)

type CreateQueryInput struct {
	ProfileID   string
	Name        string
	QueryString string
	Description string
}

func (o *Operations) CreateQuery(ctx context.Context, in CreateQueryInput) Result {
	return o.run(ctx, "createQuery", Result{ProfileID: in.ProfileID}, func() (Result, error) {
		q, err := o.ws.QueryManager.Create(in.ProfileID, in.Name, in.QueryString, in.Description)
		if err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Created query %q in %s", q.Name, in.ProfileID), in.ProfileID, q.ID), nil
	})
}

func (o *Operations) SwitchQuery(ctx context.Context, profileID, queryID string) Result {
	return o.run(ctx, "switchQuery", Result{ProfileID: profileID, QueryID: queryID}, func() (Result, error) {
		sel, err := o.ws.QueryManager.Switch(profileID, queryID)
		if err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Switched to query %s in %s", sel.QueryID, sel.ProfileID), sel.ProfileID, sel.QueryID), nil
	})
}

func (o *Operations) DeleteQuery(ctx context.Context, profileID, queryID string) Result {
	return o.run(ctx, "deleteQuery", Result{ProfileID: profileID, QueryID: queryID}, func() (Result, error) {
		if err := o.ws.QueryManager.Delete(profileID, queryID, false); err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Deleted query %s from %s", queryID, profileID), profileID, queryID), nil
	})
}

type DuplicateQueryInput struct {
	ProfileID     string
	SourceQueryID string
	NewName       string
	CopyCache     bool
}

func (o *Operations) DuplicateQuery(ctx context.Context, in DuplicateQueryInput) Result {
	return o.run(ctx, "duplicateQuery", Result{ProfileID: in.ProfileID, QueryID: in.SourceQueryID}, func() (Result, error) {
		q, err := o.ws.QueryManager.Duplicate(in.ProfileID, in.SourceQueryID, in.NewName, in.CopyCache)
		if err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Duplicated query %s as %q", in.SourceQueryID, q.Name), in.ProfileID, q.ID), nil
	})
}

func (o *Operations) RenameQuery(ctx context.Context, profileID, queryID, newName string) Result {
	return o.run(ctx, "renameQuery", Result{ProfileID: profileID, QueryID: queryID}, func() (Result, error) {
		q, err := o.ws.QueryManager.Rename(profileID, queryID, newName)
		if err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Renamed query %s to %q", q.ID, q.Name), profileID, q.ID), nil
	})
}

func (o *Operations) EditQuery(ctx context.Context, profileID, queryID, queryString, description string) Result {
	return o.run(ctx, "editQuery", Result{ProfileID: profileID, QueryID: queryID}, func() (Result, error) {
		if _, err := o.ws.QueryManager.UpdateQueryString(profileID, queryID, queryString, description); err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Updated query %s", queryID), profileID, queryID), nil
	})
}
