// Package inspect discovers the entry IDs of a Google Form from its view page.
package inspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/ivanoskov/formbot/internal/form"
	"github.com/ivanoskov/formbot/internal/model"
)

// ErrNoFields is returned when the page mentions no entry IDs, which is what
// a login-protected form looks like.
var ErrNoFields = errors.New("no form fields found")

var entryPattern = regexp.MustCompile(`entry\.(\d+)`)

const maxPageBytes = 8 << 20

// Input is a named form control found on the page.
type Input struct {
	Name  string
	Label string
}

// Result is what a form page revealed.
type Result struct {
	Entries []string // unique entry IDs in page order
	Inputs  []Input
	Mapping form.FieldMapping
}

// Extract fetches formURL and binds the first entry IDs found on the page to
// the fields in step order. The order of questions on the form must match.
func Extract(ctx context.Context, client *http.Client, formURL string) (Result, error) {
	if client == nil {
		client = &http.Client{Timeout: form.DefaultTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", form.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch form: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("form page returned status %d", resp.StatusCode)
	}
	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read form page: %w", err)
	}

	entries := uniqueEntries(page)
	if len(entries) == 0 {
		return Result{}, ErrNoFields
	}

	bindings := make(map[string]string, len(model.Fields))
	for i, f := range model.Fields {
		if i >= len(entries) {
			break
		}
		bindings[string(f)] = entries[i]
	}
	mapping, err := form.DefaultMapping(form.SubmitURLFromFormURL(formURL)).With(bindings)
	if err != nil {
		return Result{}, err
	}

	inputs, err := namedInputs(page)
	if err != nil {
		return Result{}, err
	}
	return Result{Entries: entries, Inputs: inputs, Mapping: mapping}, nil
}

func uniqueEntries(page []byte) []string {
	var entries []string
	seen := make(map[string]bool)
	for _, m := range entryPattern.FindAllSubmatch(page, -1) {
		id := "entry." + string(m[1])
		if seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, id)
	}
	return entries
}

// namedInputs lists the input, select and textarea elements named entry.*.
func namedInputs(page []byte) ([]Input, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse form page: %w", err)
	}

	var inputs []Input
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input", "select", "textarea":
				if name := attr(n, "name"); strings.HasPrefix(name, "entry.") {
					inputs = append(inputs, Input{Name: name, Label: attr(n, "aria-label")})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return inputs, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
