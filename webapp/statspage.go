package webapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// ToolStat holds the aggregate counters for one tool
type ToolStat struct {
	ToolName        string `json:"toolName"`
	Invocations     int    `json:"invocations"`
	Failures        int    `json:"failures"`
	TotalDurationMS int64  `json:"totalDurationMs"`
	LastUsed        string `json:"lastUsed"`
}

// StatsMetadata tracks when the counters were last rebuilt
type StatsMetadata struct {
	LastRecalculation  string `json:"lastRecalculation"`
	TotalRunsProcessed int    `json:"totalRunsProcessed"`
	TotalToolsTracked  int    `json:"totalToolsTracked"`
	Version            int    `json:"version"`
}

// statsResponse is the usage endpoint's payload
type statsResponse struct {
	Tools    []ToolStat    `json:"tools"`
	Metadata StatsMetadata `json:"metadata"`
	Count    int           `json:"count"`
}

// StatsPage displays per-tool usage counters
type StatsPage struct {
	app.Compo
	stats         []ToolStat
	metadata      StatsMetadata
	loading       bool
	recalculating bool
	error         string
	recalcJobID   string
}

// OnMount is called when the component is mounted
func (s *StatsPage) OnMount(ctx app.Context) {
	s.loading = true
	s.loadStats(ctx)
}

// Render renders the stats page
func (s *StatsPage) Render() app.UI {
	return app.Div().
		Class("stats-page").
		Body(
			app.H2().Text("Usage Statistics"),
			app.P().Text("Aggregate counters for every tool that has been run. Recalculation rebuilds the counters from the recorded runs."),

			app.Div().Class("stats-controls").Body(
				app.Button().
					Class("btn-primary").
					OnClick(s.onRefreshClick).
					Disabled(s.loading).
					Body(app.Text("Refresh")),
				app.Button().
					Class("btn-secondary").
					OnClick(s.onRecalculateClick).
					Disabled(s.recalculating).
					Body(app.Text(s.recalculateText())),
			),

			s.renderStatus(),
		)
}

// recalculateText returns the recalculate button label
func (s *StatsPage) recalculateText() string {
	if s.recalculating {
		return "Recalculating..."
	}
	return "Recalculate"
}

// renderStatus renders the stats table or status messages
func (s *StatsPage) renderStatus() app.UI {
	if s.loading && len(s.stats) == 0 {
		return app.Div().Class("loading").Body(
			app.Text("Loading statistics..."),
		)
	}

	if s.error != "" {
		return app.Div().Class("error").Body(
			app.Text("Error: " + s.error),
		)
	}

	var elements []app.UI

	if s.recalcJobID != "" {
		elements = append(elements, app.Div().Class("success").Body(
			app.Text("Recalculation started: "+s.recalcJobID+" "),
			app.A().Href("/jobs").Text("Watch it on the Jobs page"),
		))
	}

	if len(s.stats) == 0 {
		elements = append(elements, app.Div().Class("info").Body(
			app.P().Text("No usage recorded yet. Counters appear after the first tool run."),
		))
		return app.Div().Body(elements...)
	}

	elements = append(elements,
		app.P().Class("stats-meta").Text(s.metadataLine()),
		app.Table().Class("stats-table").Body(
			app.THead().Body(
				app.Tr().Body(
					app.Th().Text("Tool"),
					app.Th().Text("Runs"),
					app.Th().Text("Failures"),
					app.Th().Text("Success rate"),
					app.Th().Text("Avg duration"),
					app.Th().Text("Last used"),
				),
			),
			app.TBody().Body(
				app.Range(s.stats).Slice(func(i int) app.UI {
					stat := s.stats[i]
					return app.Tr().Body(
						app.Td().Text(stat.ToolName),
						app.Td().Text(fmt.Sprintf("%d", stat.Invocations)),
						app.Td().Text(fmt.Sprintf("%d", stat.Failures)),
						app.Td().Text(successRate(stat)),
						app.Td().Text(averageDuration(stat)),
						app.Td().Text(formatInvokedAt(stat.LastUsed)),
					)
				}),
			),
		),
	)

	return app.Div().Class("stats-content").Body(elements...)
}

// metadataLine summarises the recalculation metadata
func (s *StatsPage) metadataLine() string {
	meta := s.metadata
	if meta.Version == 0 {
		return fmt.Sprintf("%d tools tracked", len(s.stats))
	}

	last := meta.LastRecalculation
	if t, err := time.Parse(time.RFC3339, last); err == nil {
		last = t.Format("Jan 2, 2006 at 3:04 PM")
	}

	return fmt.Sprintf("Last recalculated %s, %d runs across %d tools (version %d)",
		last, meta.TotalRunsProcessed, meta.TotalToolsTracked, meta.Version)
}

// successRate formats the completed fraction of a tool's runs
func successRate(stat ToolStat) string {
	if stat.Invocations == 0 {
		return "-"
	}
	rate := float64(stat.Invocations-stat.Failures) / float64(stat.Invocations)
	return fmt.Sprintf("%.0f%%", rate*100)
}

// averageDuration formats the mean run time of a tool
func averageDuration(stat ToolStat) string {
	if stat.Invocations == 0 {
		return "-"
	}
	return formatDuration(stat.TotalDurationMS / int64(stat.Invocations))
}

// onRefreshClick handles the refresh button click
func (s *StatsPage) onRefreshClick(ctx app.Context, e app.Event) {
	s.loading = true
	s.error = ""
	s.loadStats(ctx)
}

// onRecalculateClick starts a usage recalculation job
func (s *StatsPage) onRecalculateClick(ctx app.Context, e app.Event) {
	s.recalculating = true
	s.error = ""
	s.recalcJobID = ""

	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/stats/recalculate"), map[string]interface{}{
			"method": "POST",
		})

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			status := response.Get("status").Int()

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
				if len(args) == 0 {
					return nil
				}

				jsonStr := app.Window().Get("JSON").Call("stringify", args[0]).String()

				ctx.Dispatch(func(ctx app.Context) {
					s.recalculating = false
					if status >= 200 && status < 300 {
						var started struct {
							Message string `json:"message"`
							JobID   string `json:"jobId"`
						}
						if err := json.Unmarshal([]byte(jsonStr), &started); err != nil {
							s.error = "Failed to parse response: " + err.Error()
							return
						}
						s.recalcJobID = started.JobID
					} else {
						s.error = fmt.Sprintf("Failed to start recalculation (status: %d)", status)
					}
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			ctx.Dispatch(func(ctx app.Context) {
				s.recalculating = false
				s.error = "Network error: Could not connect to server"
			})
			return nil
		}))
	})
}

// loadStats fetches the usage counters from the API
func (s *StatsPage) loadStats(ctx app.Context) {
	ctx.Async(func() {
		res := app.Window().Call("fetch", BuildAPIURL("/api/stats/tools"))

		res.Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			if len(args) == 0 {
				return nil
			}
			response := args[0]

			status := response.Get("status").Int()

			response.Call("json").Call("then", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
				if len(args) == 0 {
					return nil
				}

				jsonStr := app.Window().Get("JSON").Call("stringify", args[0]).String()

				ctx.Dispatch(func(ctx app.Context) {
					s.loading = false
					if status >= 200 && status < 300 {
						var resp statsResponse
						if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
							s.error = "Failed to parse statistics: " + err.Error()
							return
						}
						s.stats = resp.Tools
						s.metadata = resp.Metadata
					} else {
						s.error = fmt.Sprintf("Failed to load statistics (status: %d)", status)
					}
				})

				return nil
			}))

			return nil
		})).Call("catch", app.FuncOf(func(this app.Value, args []app.Value) interface{} {
			ctx.Dispatch(func(ctx app.Context) {
				s.loading = false
				s.error = "Network error: Could not connect to server"
			})
			return nil
		}))
	})
}
