package webapp

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// searchResponse is the invocation search payload
type searchResponse struct {
	Invocations []Invocation `json:"invocations"`
	Count       int          `json:"count"`
}

// SearchPage finds recorded runs by file or tool name
type SearchPage struct {
	app.Compo
	searchTerm string
	results    []Invocation
	loading    bool
	error      string
	searched   bool
}

// OnMount is called when the component is mounted
func (s *SearchPage) OnMount(ctx app.Context) {
	// Check if there's a search term in the URL
	urlPath := ctx.Page().URL()
	if urlObj, err := url.Parse(urlPath.String()); err == nil {
		if term := urlObj.Query().Get("term"); term != "" {
			s.searchTerm = term
			s.performSearch(ctx)
		}
	}
}

// Render renders the search page
func (s *SearchPage) Render() app.UI {
	var content app.UI

	if s.loading {
		content = app.Div().Class("loading").Body(app.Text("Searching..."))
	} else if s.error != "" {
		content = app.Div().Class("error").Body(app.Text("Error: " + s.error))
	} else if s.searched && len(s.results) == 0 {
		content = app.Div().Class("no-results").Body(app.Text("No runs found for: " + s.searchTerm))
	} else if s.searched && len(s.results) > 0 {
		content = app.Div().Class("search-results").Body(
			app.H3().Text(fmt.Sprintf("Found %d runs", len(s.results))),
			app.Div().Class("invocation-grid").Body(
				app.Range(s.results).Slice(func(i int) app.UI {
					inv := s.results[i]
					return &InvocationCard{Invocation: inv}
				}),
			),
		)
	}

	return app.Div().
		Class("search-page").
		Body(
			app.H2().Text("Search Tool Runs"),
			app.P().Text("Search recorded runs by uploaded file name or tool name."),
			app.Div().Class("search-form").Body(
				app.Input().
					Type("text").
					Class("search-input").
					Placeholder("Enter file or tool name...").
					Value(s.searchTerm).
					OnInput(func(ctx app.Context, e app.Event) {
						s.searchTerm = ctx.JSSrc().Get("value").String()
					}).
					OnKeyDown(func(ctx app.Context, e app.Event) {
						if e.Get("key").String() == "Enter" {
							s.performSearch(ctx)
						}
					}),
				app.Button().
					Class("search-button").
					Text("Search").
					OnClick(func(ctx app.Context, e app.Event) {
						s.performSearch(ctx)
					}),
			),
			content,
		)
}

// performSearch executes the search
func (s *SearchPage) performSearch(ctx app.Context) {
	if s.searchTerm == "" {
		s.error = "Please enter a search term"
		return
	}

	s.loading = true
	s.error = ""
	s.searched = false

	ctx.Async(func() {
		encodedTerm := url.QueryEscape(s.searchTerm)
		searchURL := BuildAPIURL(fmt.Sprintf("/api/invocations/search?term=%s", encodedTerm))

		res := app.Window().Call("fetch", searchURL)

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			// No matches come back as 204 with an empty body
			if response.Get("status").Int() == 204 {
				ctx.Dispatch(func(ctx app.Context) {
					s.results = nil
					s.loading = false
					s.searched = true
				})
				return nil
			}

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonStr := app.Window().Get("JSON").Call("stringify", args[0]).String()

				var resp searchResponse
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
						s.error = fmt.Sprintf("Failed to parse response: %v", err)
					} else {
						s.results = resp.Invocations
					}
					s.loading = false
					s.searched = true
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				s.error = "Network error"
				s.loading = false
			})
			return nil
		}))
	})
}
