// Package jobs runs background jobs on a bounded worker pool and records
// their progress and logs.
package jobs

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/diewo77/sales-portal/internal/models"
)

// Kind selects the step list a job runs.
type Kind int

const (
	KindUnknown Kind = iota
	KindSankhyaDemo
	KindFullLoadDemo
)

// DefaultType is used when a launch names no type.
const DefaultType = "sankhya_demo"

var kindTags = map[string]Kind{
	"sankhya_demo":   KindSankhyaDemo,
	"full_load_demo": KindFullLoadDemo,
}

// ParseKind maps a type tag to its Kind. Unrecognised tags are KindUnknown.
func ParseKind(tag string) Kind {
	if k, ok := kindTags[tag]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindSankhyaDemo:
		return "sankhya_demo"
	case KindFullLoadDemo:
		return "full_load_demo"
	default:
		return "unknown"
	}
}

// Step is one unit of work of a job. Run returns a small result payload that
// is written to the job log.
type Step struct {
	Title string
	Run   func(ctx context.Context) (map[string]any, error)
}

// StepSource builds the ordered steps of a job.
type StepSource interface {
	Steps(job *models.Job) []Step
}

// StepSourceFunc adapts a function to StepSource.
type StepSourceFunc func(job *models.Job) []Step

func (f StepSourceFunc) Steps(job *models.Job) []Step { return f(job) }

// DemoSteps simulates an ERP integration. Each step waits Delay plus up to
// Delay of jitter before returning a counter.
type DemoSteps struct {
	Delay time.Duration
}

func (d DemoSteps) Steps(job *models.Job) []Step {
	switch ParseKind(job.Type) {
	case KindSankhyaDemo:
		return []Step{
			{Title: "Authenticate with ERP", Run: d.fixed("token", "mock-erp-token")},
			{Title: "Sync clients", Run: d.counter("clients_updated", 5, 40)},
			{Title: "Sync products", Run: d.counter("products_updated", 20, 90)},
			{Title: "Sync price tables", Run: d.counter("price_tables", 1, 5)},
			{Title: "Import orders", Run: d.counter("orders_imported", 2, 15)},
		}
	case KindFullLoadDemo:
		return []Step{
			{Title: "Full load: clients", Run: d.counter("clients_updated", 5, 40)},
			{Title: "Full load: products", Run: d.counter("products_updated", 20, 90)},
			{Title: "Full load: orders", Run: d.counter("orders_imported", 2, 15)},
		}
	default:
		return []Step{EchoStep(job.Type)}
	}
}

// EchoStep is the single step of an unknown job type.
func EchoStep(tag string) Step {
	return Step{
		Title: "Single step",
		Run: func(context.Context) (map[string]any, error) {
			return map[string]any{"echo": tag}, nil
		},
	}
}

func (d DemoSteps) fixed(key string, value any) func(context.Context) (map[string]any, error) {
	return func(ctx context.Context) (map[string]any, error) {
		if err := sleep(ctx, d.Delay); err != nil {
			return nil, err
		}
		return map[string]any{key: value}, nil
	}
}

func (d DemoSteps) counter(key string, lo, hi int) func(context.Context) (map[string]any, error) {
	return func(ctx context.Context) (map[string]any, error) {
		wait := d.Delay
		if d.Delay > 0 {
			wait += time.Duration(rand.Int64N(int64(d.Delay)))
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		return map[string]any{key: lo + rand.IntN(hi-lo+1)}, nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
