package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/privacytools/ucx/internal/bugzilla"
	"github.com/privacytools/ucx/internal/exceptions"
)

// CloseResolution is the resolution used when closing a synced bug.
const CloseResolution = "FIXED"

const verifyMessage = "This message is auto-generated.\n\n" +
	"Would you please verify if the issue is resolved by the ETP exceptions? Really appreciate your help.\n"

// advance closes a fully-synced bug and asks the reporter to verify the
// fix. Only called on production targets, and only after the bug's plan
// was empty or fully applied; a bug with unconfirmed exceptions is never
// closed.
func (e *Engine) advance(ctx context.Context, bug *bugzilla.Bug, entries []exceptions.Entry) error {
	if err := e.tracker.CloseBug(ctx, bug.ID, CloseResolution, closeComment(entries)); err != nil {
		return err
	}

	requestee := bug.Creator
	if requestee == "" {
		creator, err := e.tracker.FetchCreator(ctx, bug.ID)
		if err != nil {
			return fmt.Errorf("resolve reporter: %w", err)
		}
		requestee = creator
	}

	if err := e.tracker.NeedInfo(ctx, bug.ID, verifyMessage, requestee); err != nil {
		return fmt.Errorf("request verification: %w", err)
	}
	return nil
}

// closeComment renders the templated closing comment listing the
// exception records deployed for the bug.
func closeComment(entries []exceptions.Entry) string {
	var b strings.Builder
	b.WriteString("This message is auto-generated.\n\n")
	b.WriteString("Enhanced Tracking Protection (ETP) exceptions have been deployed to address this issue.\n")
	b.WriteString("We have deployed the following exceptions:\n")
	b.WriteString("```\n")
	for _, entry := range entries {
		data, err := json.MarshalIndent(entry.Record(), "", "  ")
		if err != nil {
			continue
		}
		b.Write(data)
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	return b.String()
}
