package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/diewo77/sales-portal/internal/jobs"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	jobType string
	jobName string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Work with background jobs",
}

var jobsLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch a job and wait for it to finish",
	Long: `Launch stores a job and runs it in this process, printing its log
once it reaches success or error. The exit status is non-zero when the job
fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()

		runner := jobs.NewRunner(e.db, jobs.Options{
			Workers:   1,
			QueueSize: 1,
			Steps:     jobs.DemoSteps{Delay: e.cfg.Jobs.StepDelay},
			Logger:    e.log.Named("jobs"),
		})
		runner.Start()
		defer func() { _ = runner.Shutdown(context.Background()) }()

		return launchAndWait(cmd.Context(), e.db, runner, jobs.LaunchInput{Type: jobType, Name: jobName}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsLaunchCmd)
	jobsLaunchCmd.Flags().StringVar(&jobType, "type", jobs.DefaultType, "job type")
	jobsLaunchCmd.Flags().StringVar(&jobName, "name", "", "job name (default \"Job <type>\")")
}

func launchAndWait(ctx context.Context, conn *gorm.DB, runner *jobs.Runner, in jobs.LaunchInput, out io.Writer) error {
	job, err := runner.Launch(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "launched %s (%s)\n", job.ID, job.Type)

	store := jobs.NewStore(conn)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		current, err := store.Get(ctx, job.ID)
		if err != nil {
			return err
		}
		if !current.Status.IsTerminal() {
			continue
		}

		var logs []models.JobLog
		if err := conn.WithContext(ctx).Where("job_id = ?", job.ID).Order("ts").Order("id").Find(&logs).Error; err != nil {
			return err
		}
		for _, l := range logs {
			fmt.Fprintf(out, "%s %-5s %s\n", l.TS.Format(time.RFC3339), l.Level, l.Message)
		}
		fmt.Fprintf(out, "status: %s, progress: %d%%\n", current.Status, current.Progress)
		if current.Status == models.JobStatusError {
			return fmt.Errorf("job %s failed", job.ID)
		}
		return nil
	}
}
