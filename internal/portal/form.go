package portal

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	fallbackIndexKey  = "index"
	fallbackSecretKey = "nic"
)

type loginForm struct {
	// Action is the absolute url the form is submitted to.
	Action string
	// Hidden holds every named hidden input, passed through verbatim.
	Hidden    map[string]string
	IndexKey  string
	SecretKey string
}

func (f loginForm) payload(creds Credentials) map[string]string {
	out := make(map[string]string, len(f.Hidden)+2)
	for k, v := range f.Hidden {
		out[k] = v
	}
	out[f.IndexKey] = creds.Index
	out[f.SecretKey] = creds.Secret
	return out
}

func inputType(input *goquery.Selection) string {
	return strings.ToLower(strings.TrimSpace(input.AttrOr("type", "")))
}

func nameOr(input *goquery.Selection, fallback string) string {
	name := strings.TrimSpace(input.AttrOr("name", ""))
	if name == "" {
		return fallback
	}
	return name
}

// parseLoginForm reads the first form of `doc`, `loginEndpoint` is the
// absolute url the page was requested from.
func parseLoginForm(doc *goquery.Document, loginEndpoint string) (loginForm, error) {
	form := doc.Find("form").First()
	if form.Length() == 0 {
		return loginForm{}, ErrFormNotFound
	}

	action, err := resolveAction(loginEndpoint, form.AttrOr("action", ""))
	if err != nil {
		return loginForm{}, err
	}

	out := loginForm{
		Action:    action,
		Hidden:    map[string]string{},
		IndexKey:  fallbackIndexKey,
		SecretKey: fallbackSecretKey,
	}

	var credentialInputs []*goquery.Selection
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		switch inputType(input) {
		case "hidden":
			name := input.AttrOr("name", "")
			if name != "" {
				out.Hidden[name] = input.AttrOr("value", "")
			}
		case "text", "password":
			credentialInputs = append(credentialInputs, input)
		}
	})

	if len(credentialInputs) >= 2 {
		out.IndexKey = nameOr(credentialInputs[0], fallbackIndexKey)
		out.SecretKey = nameOr(credentialInputs[1], fallbackSecretKey)
	}

	return out, nil
}

// resolveAction resolves a form action against the login endpoint, an empty
// action submits to the endpoint itself and a relative one is resolved
// against the endpoint's scheme and host.
func resolveAction(loginEndpoint, action string) (string, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return loginEndpoint, nil
	}

	lowered := strings.ToLower(action)
	if strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://") {
		return action, nil
	}

	base, err := url.Parse(loginEndpoint)
	if err != nil {
		return "", fmt.Errorf("parse login endpoint: %w", err)
	}
	if strings.HasPrefix(action, "//") {
		return fmt.Sprintf("%s:%s", base.Scheme, action), nil
	}
	if !strings.HasPrefix(action, "/") {
		action = "/" + action
	}
	return fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, action), nil
}
