// Package session runs the interactive loop: acquire a recipient, capture
// what to say, draft, then preview until the draft is dispatched, edited or
// cancelled.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/email"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/provider"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/resolver"
)

// EditMode selects how the edit action produces a new draft.
type EditMode string

const (
	// EditRedraft drafts again from scratch using the edit text as the
	// new instruction.
	EditRedraft EditMode = "redraft"
	// EditRefine asks the model to revise the current draft.
	EditRefine EditMode = "refine"
)

// Resolver looks up a recipient address from a description.
type Resolver interface {
	Resolve(ctx context.Context, description string) (*resolver.Result, error)
}

// Composer drafts and revises emails.
type Composer interface {
	Compose(ctx context.Context, recipient, instruction, name string) (email.Draft, error)
	Refine(ctx context.Context, draft email.Draft, edit string) (email.Draft, error)
}

// Options configures a Session.
type Options struct {
	In  io.Reader
	Out io.Writer

	Resolver   Resolver
	Composer   Composer
	Dispatcher provider.Provider

	// Sender is the From address of dispatched messages.
	Sender string
	// Organization labels the banner and Domain the example address.
	Organization string
	Domain       string
	// Role names the kind of recipient in prompts, e.g. "professor".
	Role     string
	EditMode EditMode
	// Timeout bounds each model and dispatch call. Zero means no limit.
	Timeout time.Duration

	Logger *slog.Logger
}

// Session is one run of the interactive loop.
type Session struct {
	opts   Options
	in     *lineReader
	view   *view
	runner *runner
	logger *slog.Logger

	// handOff is true when dispatch only opens a mail client.
	handOff bool
}

// recipient is the outcome of recipient acquisition. Email may be empty
// when the user chose to continue without one.
type recipient struct {
	email string
	name  string
}

// New creates a Session. Input is not read until Run.
func New(opts Options) *Session {
	if opts.Role == "" {
		opts.Role = "professor"
	}
	if opts.Domain == "" {
		opts.Domain = "uic.edu"
	}
	if opts.EditMode == "" {
		opts.EditMode = EditRedraft
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		opts:    opts,
		view:    newView(opts.Out),
		runner:  newRunner(opts.Timeout),
		logger:  logger,
		handOff: opts.Dispatcher.Name() == "mailto",
	}
}

// Run drives the loop until the user quits or input ends, both of which
// return nil. A cancelled context returns its error.
func (s *Session) Run(ctx context.Context) error {
	s.in = newLineReader(s.opts.In)
	defer s.in.close()

	s.view.banner(s.opts.Organization, s.opts.Sender)
	for {
		err := s.round(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			s.logger.Debug("session ended by user")
			return nil
		case errors.Is(err, io.EOF):
			s.view.println("")
			s.logger.Debug("session ended at end of input")
			return nil
		default:
			return err
		}
	}
}

// round handles one recipient from acquisition to the end of its preview.
func (s *Session) round(ctx context.Context) error {
	rcpt, ok, err := s.acquireRecipient(ctx)
	if err != nil || !ok {
		return err
	}

	s.view.println("\nMessage details:")
	instruction, err := s.ask(ctx, "> ")
	if err != nil {
		return err
	}

	s.view.println("\nDrafting email...\n")
	d, err := call(ctx, s.runner, s.runner.current(), func(ctx context.Context) (email.Draft, error) {
		return s.opts.Composer.Compose(ctx, rcpt.email, instruction, rcpt.name)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("drafting failed", "error", err)
		s.view.errorf("Error talking to the model: %v", err)
		return nil
	}
	return s.preview(ctx, rcpt, d)
}

// ask prints prompt and reads one trimmed line. A quit word returns errQuit.
func (s *Session) ask(ctx context.Context, prompt string) (string, error) {
	s.view.printf("%s", prompt)
	line, err := s.in.read(ctx)
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if isQuit(line) {
		return "", errQuit
	}
	return line, nil
}

// acquireRecipient returns ok=false when the input was blank and the
// recipient prompt should be shown again.
func (s *Session) acquireRecipient(ctx context.Context) (recipient, bool, error) {
	s.view.println("Recipient options:")
	s.view.printf("  - Email address (%s@%s)\n", abbrev(s.opts.Role), s.opts.Domain)
	s.view.printf("  - Description (\"%s Jane Doe, CS 211\")\n", titleCase(abbrev(s.opts.Role)))
	raw, err := s.ask(ctx, "> ")
	if err != nil || raw == "" {
		return recipient{}, false, err
	}
	if looksLikeAddress(raw) {
		s.logger.Debug("recipient entered directly")
		return recipient{email: raw}, true, nil
	}

	description := raw
	for {
		s.view.println("\nSearching for their email address...\n")
		res, err := call(ctx, s.runner, s.runner.current(), func(ctx context.Context) (*resolver.Result, error) {
			return s.opts.Resolver.Resolve(ctx, description)
		})
		if err == nil {
			return s.confirm(ctx, res)
		}
		if ctx.Err() != nil {
			return recipient{}, false, ctx.Err()
		}

		s.view.println(lookupFailure(err))
		s.view.printf("Failed to find %s.\n", s.opts.Role)
		retry, err := s.ask(ctx, fmt.Sprintf("Type the %s name/description to retry (press Enter to skip lookup): ", s.opts.Role))
		if err != nil {
			return recipient{}, false, err
		}
		if retry != "" {
			description = retry
			continue
		}

		manual, err := s.manualAddress(ctx, "Type the email address manually")
		if err != nil {
			return recipient{}, false, err
		}
		return recipient{email: manual}, true, nil
	}
}

// confirm shows a lookup result and asks whether to use it. Declining
// keeps the found name and takes the address from the user.
func (s *Session) confirm(ctx context.Context, res *resolver.Result) (recipient, bool, error) {
	s.view.lookupResult(s.opts.Role, res)
	answer, err := s.ask(ctx, "Use this email? (yes/no) ")
	if err != nil {
		return recipient{}, false, err
	}
	name := res.Primary.Name
	if isYes(answer) {
		return recipient{email: res.Primary.Email, name: name}, true, nil
	}

	manual, err := s.manualAddress(ctx, "Enter the email manually")
	if err != nil {
		return recipient{}, false, err
	}
	return recipient{email: manual, name: name}, true, nil
}

// manualAddress reads an address typed by the user. A blank answer is only
// accepted when the draft is handed to a mail client, where the To field can
// still be filled in. Sending directly needs an address, so it asks again.
func (s *Session) manualAddress(ctx context.Context, prompt string) (string, error) {
	if s.handOff {
		prompt += " (press Enter to leave blank): "
	} else {
		prompt += ": "
	}
	for {
		addr, err := s.ask(ctx, prompt)
		if err != nil {
			return "", err
		}
		if addr != "" {
			return addr, nil
		}
		if s.handOff {
			s.view.println("Continuing without a pre-filled email. You can add it in Mail.\n")
			return "", nil
		}
		s.view.println("An email address is required to send.")
	}
}

// preview shows the draft and handles the action menu until the draft is
// dispatched or cancelled. Failed calls leave the draft on screen.
func (s *Session) preview(ctx context.Context, rcpt recipient, d email.Draft) error {
	version := s.runner.advance()
	for {
		s.view.draft(d)
		choice, err := s.ask(ctx, s.menu())
		if err != nil {
			return err
		}
		choice = strings.ToLower(choice)

		switch {
		case strings.HasPrefix(choice, "o"), strings.HasPrefix(choice, "s"):
			if err := s.dispatch(ctx, version, d); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			s.runner.advance()
			return nil

		case strings.HasPrefix(choice, "e"):
			s.view.println("\nDescribe the edits you'd like (enter to cancel editing):")
			edit, err := s.ask(ctx, "> ")
			if err != nil {
				return err
			}
			if edit == "" {
				continue
			}
			s.view.println("\nUpdating draft...\n")
			next, err := call(ctx, s.runner, version, func(ctx context.Context) (email.Draft, error) {
				return s.revise(ctx, rcpt, d, edit)
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("edit failed", "mode", s.opts.EditMode, "error", err)
				s.view.errorf("Error talking to the model: %v", err)
				continue
			}
			d = next
			version = s.runner.advance()

		case strings.HasPrefix(choice, "c"):
			s.runner.advance()
			if s.handOff {
				s.view.println("Draft not opened.\n")
			} else {
				s.view.println("Cancelled.\n")
			}
			return nil

		default:
			s.view.println("Please choose one of the options above.")
		}
	}
}

func (s *Session) revise(ctx context.Context, rcpt recipient, d email.Draft, edit string) (email.Draft, error) {
	if s.opts.EditMode == EditRefine {
		return s.opts.Composer.Refine(ctx, d, edit)
	}
	return s.opts.Composer.Compose(ctx, rcpt.email, edit, rcpt.name)
}

func (s *Session) dispatch(ctx context.Context, version uint64, d email.Draft) error {
	msg := d.Message(s.opts.Sender)
	_, err := call(ctx, s.runner, version, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.opts.Dispatcher.Send(ctx, msg)
	})
	if err != nil {
		s.logger.Warn("dispatch failed", "provider", s.opts.Dispatcher.Name(), "error", err)
		if s.handOff {
			s.view.errorf("Error opening mail client: %v", err)
		} else {
			s.view.errorf("Error sending: %v", err)
		}
		s.view.println("")
		return err
	}

	if s.handOff {
		s.view.println("Opened in your default mail app. Review and send there.\n")
	} else {
		s.view.println("Email sent.\n")
	}
	return nil
}

func (s *Session) menu() string {
	first := "  [s] Send this message\n"
	if s.handOff {
		first = "  [o] Open in Mail app\n"
	}
	return "\nChoose an option:\n" + first + "  [e] Edit this message\n  [c] Cancel\n> "
}

func lookupFailure(err error) string {
	switch {
	case errors.Is(err, resolver.ErrNoMatch):
		return "No reliable match found for that description."
	case errors.Is(err, resolver.ErrLookup):
		return "Lookup error. Please refine the description."
	case errors.Is(err, ErrCallTimeout):
		return "Lookup timed out."
	default:
		return fmt.Sprintf("Lookup failed: %v", err)
	}
}

// abbrev shortens "professor" to "prof" for the example description.
func abbrev(role string) string {
	if role == "professor" {
		return "prof"
	}
	return role
}
