package cmd

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

func newJobsCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}
	root.AddCommand(newJobsTriggerCommand(), newJobsStatsCommand())
	return root
}

func queueAddr() (string, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if !cfg.QueueEnabled() {
		return "", errors.New("jobs: REDIS_ADDR is not set")
	}
	return cfg.RedisAddr, nil
}

func newJobsTriggerCommand() *cobra.Command {
	var trigger string
	cmd := &cobra.Command{
		Use:       "trigger <job>",
		Short:     "Enqueue a job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"gl_integrity"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "gl_integrity" && args[0] != jobs.TaskGLIntegrity {
				return fmt.Errorf("jobs: unsupported job %s", args[0])
			}
			addr, err := queueAddr()
			if err != nil {
				return err
			}
			client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: addr})
			if err != nil {
				return err
			}
			defer client.Close()
			info, err := client.EnqueueGLIntegrity(cmd.Context(), jobs.GLIntegrityPayload{Trigger: trigger})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().StringVar(&trigger, "by", "cli", "who triggered the run, for the logs")
	return cmd
}

func newJobsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the default queue state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := queueAddr()
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: addr})
			defer inspector.Close()
			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry)
			return nil
		},
	}
}
