// Package deploy drives the provisioning engine through the Pulumi
// automation API, running the infrastructure program inline.
package deploy

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/juju/loggo/v2"
	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optdestroy"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optpreview"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optrefresh"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optup"
	"github.com/pulumi/pulumi/sdk/v3/go/common/tokens"
	"github.com/pulumi/pulumi/sdk/v3/go/common/workspace"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/infra"
	"github.com/vietdv277/nimbus/pkg/types"
)

var logger = loggo.GetLogger("nimbus.deploy")

// stack is the part of auto.Stack the engine drives.
type stack interface {
	Preview(ctx context.Context, opts ...optpreview.Option) (auto.PreviewResult, error)
	Up(ctx context.Context, opts ...optup.Option) (auto.UpResult, error)
	Destroy(ctx context.Context, opts ...optdestroy.Option) (auto.DestroyResult, error)
	Refresh(ctx context.Context, opts ...optrefresh.Option) (auto.RefreshResult, error)
	Outputs(ctx context.Context) (auto.OutputMap, error)
}

// Result is the outcome of an engine operation.
type Result struct {
	Changes []types.ChangeCount
	Outputs auto.OutputMap
}

// Engine runs one configured stack.
type Engine struct {
	cfg      *config.Config
	settings Settings
	progress io.Writer

	open func(ctx context.Context) (stack, error)
}

// NewEngine returns an engine for cfg. Engine progress is streamed to
// progress when it is not nil.
func NewEngine(cfg *config.Config, settings Settings, progress io.Writer) *Engine {
	e := &Engine{cfg: cfg, settings: settings, progress: progress}
	e.open = e.upsert
	return e
}

func (e *Engine) workspaceOptions() []auto.LocalWorkspaceOption {
	project := workspace.Project{
		Name:    tokens.PackageName(e.cfg.Project),
		Runtime: workspace.NewProjectRuntimeInfo("go", nil),
	}
	if e.settings.BackendURL != "" {
		project.Backend = &workspace.ProjectBackend{URL: e.settings.BackendURL}
	}

	opts := []auto.LocalWorkspaceOption{
		auto.Project(project),
		auto.EnvVars(e.settings.envVars(e.cfg.Profile)),
	}
	if e.settings.WorkDir != "" {
		opts = append(opts, auto.WorkDir(e.settings.WorkDir))
	}
	if e.settings.SecretsProvider != "" {
		opts = append(opts, auto.SecretsProvider(e.settings.SecretsProvider))
	}
	return opts
}

// upsert creates or selects the stack and sets its provider config.
func (e *Engine) upsert(ctx context.Context) (stack, error) {
	logger.Debugf("selecting stack %s/%s", e.cfg.Project, e.cfg.Stack)

	s, err := auto.UpsertStackInlineSource(ctx, e.cfg.Stack, e.cfg.Project, infra.Program(e.cfg), e.workspaceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to select stack %s: %w", e.cfg.Stack, err)
	}

	if err := s.SetConfig(ctx, "aws:region", auto.ConfigValue{Value: e.cfg.Region}); err != nil {
		return nil, fmt.Errorf("failed to set aws:region: %w", err)
	}
	if e.cfg.Profile != "" {
		if err := s.SetConfig(ctx, "aws:profile", auto.ConfigValue{Value: e.cfg.Profile}); err != nil {
			return nil, fmt.Errorf("failed to set aws:profile: %w", err)
		}
	}

	return &s, nil
}

func (e *Engine) streams() []io.Writer {
	if e.progress == nil {
		return nil
	}
	return []io.Writer{e.progress}
}

// Preview computes the changes an update would make.
func (e *Engine) Preview(ctx context.Context) (*Result, error) {
	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.Preview(ctx,
		optpreview.ProgressStreams(e.streams()...),
		optpreview.Parallel(e.settings.Parallel),
	)
	if err != nil {
		return nil, wrapEngineError("preview", err)
	}
	return &Result{Changes: Changes(previewSummary(res.ChangeSummary))}, nil
}

// Up applies the program to the stack.
func (e *Engine) Up(ctx context.Context) (*Result, error) {
	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := s.Up(ctx,
		optup.ProgressStreams(e.streams()...),
		optup.Parallel(e.settings.Parallel),
		optup.Message(fmt.Sprintf("nimbus up %s/%s", e.cfg.Project, e.cfg.Stack)),
	)
	if err != nil {
		return nil, wrapEngineError("update", err)
	}
	logger.Infof("update of %s finished in %s", e.cfg.Stack, time.Since(start).Round(time.Second))

	return &Result{Changes: Changes(updateSummary(res.Summary)), Outputs: res.Outputs}, nil
}

// Destroy deletes every resource of the stack.
func (e *Engine) Destroy(ctx context.Context) (*Result, error) {
	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.Destroy(ctx,
		optdestroy.ProgressStreams(e.streams()...),
		optdestroy.Parallel(e.settings.Parallel),
	)
	if err != nil {
		return nil, wrapEngineError("destroy", err)
	}
	return &Result{Changes: Changes(updateSummary(res.Summary))}, nil
}

// Refresh reconciles the stack state with the live resources.
func (e *Engine) Refresh(ctx context.Context) (*Result, error) {
	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.Refresh(ctx,
		optrefresh.ProgressStreams(e.streams()...),
		optrefresh.Parallel(e.settings.Parallel),
	)
	if err != nil {
		return nil, wrapEngineError("refresh", err)
	}
	return &Result{Changes: Changes(updateSummary(res.Summary))}, nil
}

// Outputs returns the stack outputs of the last update.
func (e *Engine) Outputs(ctx context.Context) (auto.OutputMap, error) {
	s, err := e.open(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.Outputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read outputs of %s: %w", e.cfg.Stack, err)
	}
	return out, nil
}

// ListStacks returns the stacks of the project known to the backend.
func (e *Engine) ListStacks(ctx context.Context) ([]types.StackSummary, error) {
	ws, err := auto.NewLocalWorkspace(ctx, e.workspaceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}

	stacks, err := ws.ListStacks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stacks: %w", err)
	}

	out := make([]types.StackSummary, 0, len(stacks))
	for _, s := range stacks {
		out = append(out, toStackSummary(s))
	}
	return out, nil
}

func toStackSummary(s auto.StackSummary) types.StackSummary {
	summary := types.StackSummary{
		Name:             s.Name,
		Current:          s.Current,
		UpdateInProgress: s.UpdateInProgress,
		URL:              s.URL,
	}
	if s.ResourceCount != nil {
		summary.ResourceCount = *s.ResourceCount
	}
	if t, err := time.Parse(time.RFC3339, s.LastUpdate); err == nil {
		summary.LastUpdate = t
	}
	return summary
}

func wrapEngineError(op string, err error) error {
	if auto.IsConcurrentUpdateError(err) {
		return fmt.Errorf("%s: another update is in progress on this stack: %w", op, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
