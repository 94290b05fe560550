package webapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// Invocation represents a recorded tool run from the API
type Invocation struct {
	ID         int    `json:"ID"`
	ToolName   string `json:"ToolName"`
	FileName   string `json:"FileName"`
	FileHash   string `json:"FileHash"`
	FileSize   int64  `json:"FileSize"`
	ULID       string `json:"ULID"`
	Status     string `json:"Status"`
	Summary    string `json:"Summary"`
	Error      string `json:"Error"`
	Results    string `json:"Results"`
	ResultDir  string `json:"ResultDir"`
	PageCount  int    `json:"PageCount"`
	DurationMS int64  `json:"DurationMS"`
	InvokedAt  string `json:"InvokedAt"`
}

// ResultFile describes one output file of a run
type ResultFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// PaginatedResponse represents the paginated API response
type PaginatedResponse struct {
	Invocations []Invocation `json:"invocations"`
	Page        int          `json:"page"`
	PageSize    int          `json:"pageSize"`
	TotalCount  int          `json:"totalCount"`
	TotalPages  int          `json:"totalPages"`
	HasNext     bool         `json:"hasNext"`
	HasPrevious bool         `json:"hasPrevious"`
}

// HomePage displays the latest tool runs with pagination
type HomePage struct {
	app.Compo
	invocations []Invocation
	currentPage int
	totalPages  int
	totalCount  int
	hasNext     bool
	hasPrevious bool
	loading     bool
	error       string
}

// OnMount is called when the component is mounted
func (h *HomePage) OnMount(ctx app.Context) {
	h.currentPage = 1
	h.loading = true
	h.fetchInvocations(ctx, 1)
}

// fetchInvocations fetches recorded runs for a specific page
func (h *HomePage) fetchInvocations(ctx app.Context, page int) {
	ctx.Async(func() {
		url := BuildAPIURL(fmt.Sprintf("/api/invocations/latest?page=%d", page))
		res := app.Window().Call("fetch", url)

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) any {
				if len(args) == 0 {
					return nil
				}

				jsonData := args[0]
				jsonStr := app.Window().Get("JSON").Call("stringify", jsonData).String()

				var resp PaginatedResponse
				ctx.Dispatch(func(ctx app.Context) {
					if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
						h.error = fmt.Sprintf("Failed to parse response: %v", err)
					} else {
						h.invocations = resp.Invocations
						h.currentPage = resp.Page
						h.totalPages = resp.TotalPages
						h.totalCount = resp.TotalCount
						h.hasNext = resp.HasNext
						h.hasPrevious = resp.HasPrevious
					}
					h.loading = false
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) any {
			ctx.Dispatch(func(ctx app.Context) {
				h.error = "Network error"
				h.loading = false
			})
			return nil
		}))
	})
}

// onPageChange handles page navigation
func (h *HomePage) onPageChange(page int) func(ctx app.Context, e app.Event) {
	return func(ctx app.Context, e app.Event) {
		e.PreventDefault()
		h.loading = true
		h.error = ""
		h.fetchInvocations(ctx, page)
	}
}

// Render renders the home page
func (h *HomePage) Render() app.UI {
	var content app.UI

	if h.loading {
		content = app.Div().Class("loading").Body(app.Text("Loading..."))
	} else if h.error != "" {
		content = app.Div().Class("error").Body(app.Text("Error: " + h.error))
	} else if len(h.invocations) == 0 {
		content = app.Div().Class("no-results").Body(app.Text("No tool runs recorded yet. Head to Run Tools to process your first PDF."))
	} else {
		content = app.Div().Class("invocation-grid").Body(
			app.Range(h.invocations).Slice(func(i int) app.UI {
				inv := h.invocations[i]
				return &InvocationCard{Invocation: inv}
			}),
		)
	}

	return app.Div().
		Class("home-page").
		Body(
			app.H2().Text("Latest Tool Runs"),
			app.P().Class("page-info").Text(
				fmt.Sprintf("Showing page %d of %d (%d total runs)",
					h.currentPage, h.totalPages, h.totalCount),
			),
			content,
			h.renderPagination(),
		)
}

// renderPagination renders the pagination controls
func (h *HomePage) renderPagination() app.UI {
	if h.totalPages <= 1 {
		return app.Div() // No pagination needed
	}

	return app.Div().Class("pagination").Body(
		// Previous button
		app.Button().
			Class("pagination-btn").
			Disabled(!h.hasPrevious || h.loading).
			OnClick(h.onPageChange(h.currentPage - 1)).
			Body(app.Text("← Previous")),

		// Page info
		app.Span().Class("pagination-info").Body(
			app.Text(fmt.Sprintf("Page %d of %d", h.currentPage, h.totalPages)),
		),

		// Next button
		app.Button().
			Class("pagination-btn").
			Disabled(!h.hasNext || h.loading).
			OnClick(h.onPageChange(h.currentPage + 1)).
			Body(app.Text("Next →")),

		// Jump to first/last
		app.Div().Class("pagination-jump").Body(
			app.Button().
				Class("pagination-btn-small").
				Disabled(h.currentPage == 1 || h.loading).
				OnClick(h.onPageChange(1)).
				Body(app.Text("First")),
			app.Button().
				Class("pagination-btn-small").
				Disabled(h.currentPage == h.totalPages || h.loading).
				OnClick(h.onPageChange(h.totalPages)).
				Body(app.Text("Last")),
		),
	)
}

// InvocationCard displays a single recorded run
type InvocationCard struct {
	app.Compo
	Invocation Invocation
}

// Render renders the invocation card
func (c *InvocationCard) Render() app.UI {
	inv := c.Invocation

	icon := "✅"
	if inv.Status != "completed" {
		icon = "❌"
	}

	detail := inv.Summary
	if inv.Status == "failed" && inv.Error != "" {
		detail = inv.Error
	}

	return app.Div().
		Class("invocation-card invocation-"+inv.Status).
		Body(
			app.Div().Class("invocation-icon").Body(
				app.Text(icon),
			),
			app.Div().Class("invocation-info").Body(
				app.H3().Text(inv.ToolName),
				app.P().Class("invocation-file").Text(inv.FileName),
				app.If(detail != "",
					func() app.UI {
						return app.P().Class("invocation-summary").Text(detail)
					},
				),
				app.P().Class("invocation-meta").Text(
					fmt.Sprintf("%d pages · %s · %s",
						inv.PageCount, formatDuration(inv.DurationMS), formatInvokedAt(inv.InvokedAt)),
				),
				c.renderResultLinks(),
			),
		)
}

// renderResultLinks renders download links for the run's output files
func (c *InvocationCard) renderResultLinks() app.UI {
	var files []ResultFile
	if c.Invocation.Results != "" {
		if err := json.Unmarshal([]byte(c.Invocation.Results), &files); err != nil {
			return app.Div()
		}
	}
	if len(files) == 0 {
		return app.Div()
	}

	return app.Div().Class("invocation-results").Body(
		app.Range(files).Slice(func(i int) app.UI {
			file := files[i]
			url := BuildAPIURL(fmt.Sprintf("/api/results/%s/%s", c.Invocation.ULID, file.Name))
			return app.A().
				Href(url).
				Class("result-link").
				Target("_blank").
				Body(app.Text(fmt.Sprintf("%s (%s)", file.Name, formatBytes(file.Size))))
		}),
	)
}

// formatDuration renders a millisecond duration for display
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%.1f s", float64(ms)/1000)
}

// formatInvokedAt formats an ISO time string to readable format
func formatInvokedAt(timeStr string) string {
	if timeStr == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return timeStr
	}
	return t.Format("Jan 2, 2006 at 3:04 PM")
}
