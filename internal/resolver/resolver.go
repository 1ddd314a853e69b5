// Package resolver turns a free-text description of a person into a
// validated organizational email address using a search-capable model.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/llm"
)

var (
	// ErrLookup means the search call failed or its reply was not the
	// expected JSON shape.
	ErrLookup = errors.New("lookup error")
	// ErrNoMatch means no candidate passed validation.
	ErrNoMatch = errors.New("no reliable match found")
)

// Candidate is one validated match proposed by the model. Name and
// Department are empty when the model left them blank.
type Candidate struct {
	Name       string
	Department string
	Email      string
	Confidence *float64
}

// Result holds the surviving candidates in model order. Primary is always
// Candidates[0].
type Result struct {
	Primary    Candidate
	Candidates []Candidate
}

// SameName returns every candidate whose name matches the primary's, ignoring
// case and surrounding space. It returns nil unless at least two share it.
func (r *Result) SameName() []Candidate {
	if r == nil || r.Primary.Name == "" {
		return nil
	}
	want := strings.ToLower(strings.TrimSpace(r.Primary.Name))

	var same []Candidate
	for _, c := range r.Candidates {
		if strings.ToLower(strings.TrimSpace(c.Name)) == want {
			same = append(same, c)
		}
	}
	if len(same) < 2 {
		return nil
	}
	return same
}

// Scope describes where to look and which addresses are acceptable.
type Scope struct {
	Organization string
	Domain       string
	Role         string
}

// Resolver looks up recipients through an llm.Searcher.
type Resolver struct {
	searcher llm.Searcher
	scope    Scope
	domain   string
	logger   *slog.Logger
}

// New creates a Resolver. The domain suffix is compared case-insensitively and
// may be given with or without a leading "@".
func New(searcher llm.Searcher, scope Scope, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if scope.Role == "" {
		scope.Role = "person"
	}
	return &Resolver{
		searcher: searcher,
		scope:    scope,
		domain:   strings.ToLower(strings.TrimLeft(strings.TrimSpace(scope.Domain), "@.")),
		logger:   logger,
	}
}

// Resolve searches for the person described. Malformed replies yield
// ErrLookup and an empty or fully filtered reply yields ErrNoMatch; both are
// logged with a reason.
func (r *Resolver) Resolve(ctx context.Context, description string) (*Result, error) {
	raw, err := r.searcher.Search(ctx, r.prompt(description))
	if err != nil {
		r.logger.Warn("recipient lookup failed", "reason", "search call failed", "provider", r.searcher.Name(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	data, ok := llm.ParseObject(raw)
	if !ok {
		r.logger.Warn("recipient lookup failed", "reason", "reply is not a JSON object")
		return nil, ErrLookup
	}
	entries, ok := data["matches"].([]any)
	if !ok {
		r.logger.Warn("recipient lookup failed", "reason", "matches list missing")
		return nil, ErrLookup
	}

	var candidates []Candidate
	for i, entry := range entries {
		c, reason := r.candidate(entry)
		if reason != "" {
			r.logger.Debug("candidate rejected", "index", i, "reason", reason)
			continue
		}
		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		r.logger.Info("recipient lookup found nothing", "reason", "no candidate passed validation", "returned", len(entries))
		return nil, ErrNoMatch
	}

	return &Result{Primary: candidates[0], Candidates: candidates}, nil
}

// candidate validates one entry of the matches list. A non-empty reason means
// the entry was rejected.
func (r *Resolver) candidate(entry any) (Candidate, string) {
	fields, ok := entry.(map[string]any)
	if !ok {
		return Candidate{}, "entry is not an object"
	}
	addr, ok := fields["email"].(string)
	if !ok {
		return Candidate{}, "email is not a string"
	}
	addr = strings.TrimSpace(addr)
	if !r.inDomain(addr) {
		return Candidate{}, "email outside organization domain"
	}

	c := Candidate{
		Name:       optionalString(fields["name"]),
		Department: optionalString(fields["department"]),
		Email:      addr,
	}
	if conf, ok := fields["confidence"].(float64); ok {
		c.Confidence = &conf
	}
	return c, ""
}

// inDomain reports whether addr has one "@" and a domain equal to, or a
// subdomain of, the required suffix.
func (r *Resolver) inDomain(addr string) bool {
	local, domain, ok := strings.Cut(strings.ToLower(addr), "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return false
	}
	if r.domain == "" {
		return domain != ""
	}
	return domain == r.domain || strings.HasSuffix(domain, "."+r.domain)
}

func optionalString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
