package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"yoink/internal/api"
	"yoink/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

// statusDisplayOrder fixes the row order for the stats table: pipeline
// order first, terminal states last.
var statusDisplayOrder = []string{
	"pending", "fetching", "fetched", "transcoding", "transcoded",
	"delivering", "completed", "failed",
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	seen := make(map[string]struct{}, len(stats))
	for _, status := range statusDisplayOrder {
		if count, ok := stats[status]; ok && count > 0 {
			rows = append(rows, []string{status, strconv.Itoa(count)})
			seen[status] = struct{}{}
		}
	}
	for status, count := range stats {
		if _, ok := seen[status]; ok || count == 0 {
			continue
		}
		rows = append(rows, []string{status, strconv.Itoa(count)})
	}
	return rows
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				stats := make(map[string]int)
				if client != nil {
					status, err := client.Status(cmd.Context())
					if err != nil {
						return err
					}
					stats = status.Workflow.QueueStats
				} else {
					raw, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					for status, count := range raw {
						stats[string(status)] = count
					}
				}

				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

// parseStatusFilters validates --status values before they hit the daemon
// or the database, so a typo reports the known set instead of an empty list.
func parseStatusFilters(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			known := make([]string, 0, len(queue.AllStatuses()))
			for _, s := range queue.AllStatuses() {
				known = append(known, string(s))
			}
			return nil, fmt.Errorf("unknown status %q (known: %s)", value, strings.Join(known, ", "))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func buildQueueListRows(jobs []api.MediaJob) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		title := job.Title
		if title == "" {
			title = job.VideoID
		}
		progress := fmt.Sprintf("%3.0f%%", job.Progress.Percent)
		if job.Progress.Stage != "" {
			progress = fmt.Sprintf("%s %s", progress, job.Progress.Stage)
		}
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.VideoID,
			job.Operation,
			title,
			job.Status,
			progress,
			job.CreatedAt,
		})
	}
	return rows
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List media jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withQueue(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var jobs []api.MediaJob
				if client != nil {
					filters := make([]string, 0, len(statuses))
					for _, status := range statuses {
						filters = append(filters, string(status))
					}
					var err error
					jobs, err = client.QueueList(cmd.Context(), filters...)
					if err != nil {
						return err
					}
				} else {
					records, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					jobs = api.FromJobs(records)
				}

				if asJSON {
					return writeJSON(cmd, api.QueueListResponse{Jobs: jobs})
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Video", "Op", "Title", "Status", "Progress", "Created"},
					buildQueueListRows(jobs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show a single media job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withQueue(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var job *api.MediaJob
				if client != nil {
					job, err = client.QueueJob(cmd.Context(), id)
					if err != nil {
						return err
					}
				} else {
					record, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if record != nil {
						dto := api.FromJob(record)
						job = &dto
					}
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}
				return writeJSON(cmd, api.QueueJobResponse{Job: *job})
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Retry failed jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withQueue(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var updated int64
				var err error
				if client != nil {
					updated, err = client.QueueRetry(cmd.Context(), ids)
				} else {
					updated, err = store.RetryFailed(cmd.Context(), ids...)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed jobs\n", updated)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <jobID>",
		Short: "Delete a single job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withQueue(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				if client != nil {
					if err := client.QueueRemove(cmd.Context(), id); err != nil {
						return err
					}
				} else {
					removed, err := store.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !removed {
						return fmt.Errorf("job %d not found", id)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed job %d\n", id)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs in bulk",
		RunE: func(cmd *cobra.Command, args []string) error {
			var scope string
			switch {
			case clearCompleted && !clearFailed && !clearAll:
				scope = "completed"
			case clearFailed && !clearCompleted && !clearAll:
				scope = "failed"
			case clearAll && !clearCompleted && !clearFailed:
				scope = "all"
			default:
				return errors.New("specify exactly one of --completed, --failed, or --all")
			}

			return ctx.withQueue(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var removed int64
				var err error
				switch {
				case client != nil:
					removed, err = client.QueueClear(cmd.Context(), scope)
				case clearFailed:
					removed, err = store.ClearFailed(cmd.Context())
				case clearAll:
					removed, err = store.Clear(cmd.Context())
				default:
					removed, err = store.ClearCompleted(cmd.Context())
				}
				if err != nil {
					return err
				}
				if scope == "all" {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d jobs\n", removed)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s jobs\n", removed, scope)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every job regardless of status")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run queue database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var health api.QueueHealthResponse
				if client != nil {
					resp, err := client.QueueHealth(cmd.Context())
					if err != nil {
						return err
					}
					health = *resp
				} else {
					raw, err := store.CheckHealth(cmd.Context())
					if err != nil {
						return err
					}
					health = api.FromDatabaseHealth(raw)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Database file", boolKind(health.DatabaseExists), health.DBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Readable", boolKind(health.DatabaseReadable), "", colorize))
				fmt.Fprintln(out, renderStatusLine("Schema", boolKind(health.TableExists), "", colorize))
				fmt.Fprintln(out, renderStatusLine("Integrity", boolKind(health.IntegrityCheck), "", colorize))
				fmt.Fprintln(out, renderStatusLine("Total jobs", statusInfo, strconv.Itoa(health.TotalJobs), colorize))
				if health.Error != "" {
					fmt.Fprintln(out, renderStatusLine("Error", statusError, health.Error, colorize))
				}
				return nil
			})
		},
	}
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
