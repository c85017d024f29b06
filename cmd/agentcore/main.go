// Command agentcore runs one orchestration core process: it loads
// configuration, wires every component, and drives turns from stdin until
// EOF or a fatal infrastructure error.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agentcore/orchestrator/internal/agent/approval"
	"github.com/agentcore/orchestrator/internal/agent/builtins"
	"github.com/agentcore/orchestrator/internal/agent/cache"
	"github.com/agentcore/orchestrator/internal/agent/classifier"
	"github.com/agentcore/orchestrator/internal/agent/command"
	"github.com/agentcore/orchestrator/internal/agent/config"
	"github.com/agentcore/orchestrator/internal/agent/dispatch"
	"github.com/agentcore/orchestrator/internal/agent/events"
	"github.com/agentcore/orchestrator/internal/agent/feedback"
	"github.com/agentcore/orchestrator/internal/agent/memory"
	"github.com/agentcore/orchestrator/internal/agent/model"
	"github.com/agentcore/orchestrator/internal/agent/patch"
	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/promptcompose"
	"github.com/agentcore/orchestrator/internal/agent/runtime"
	"github.com/agentcore/orchestrator/internal/agent/session"
	"github.com/agentcore/orchestrator/internal/agent/telemetry"
	"github.com/agentcore/orchestrator/internal/agent/tools"
	"github.com/agentcore/orchestrator/internal/llm/anthropic"
	"github.com/agentcore/orchestrator/internal/llm/bedrock"
	"github.com/agentcore/orchestrator/internal/llm/middleware"
	"github.com/agentcore/orchestrator/internal/llm/openai"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional; env vars always override)")
	projectID := flag.String("project", "default", "project id attached to every turn")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("agentcore: load config: %v", err)
	}

	logger := telemetry.NewStdLogger(nil)
	ctx := context.Background()

	client, err := buildModelClient(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("agentcore: build model client: %v", err)
	}
	client = middleware.NewAdaptiveRateLimiter(60000, 240000).Middleware()(client)

	sandbox, err := policy.NewSandbox(cfg.WorkspaceRoot)
	if err != nil {
		log.Fatalf("agentcore: build sandbox: %v", err)
	}
	cmdPolicy := policy.CommandPolicy{}
	runner := command.NewRunner(cmdPolicy, 0)
	patchEngine := patch.NewEngine()

	registry, err := tools.Init(builtins.All(sandbox, runner, patchEngine, cfg.WorkspaceRoot))
	if err != nil {
		log.Fatalf("agentcore: init tool registry: %v", err)
	}
	tools.SetGlobal(registry)

	toolCache := cache.New(cache.Options{Capacity: cfg.Cache.Capacity, TTL: cfg.Cache.TTL()})

	sessionDir := cfg.SessionDir
	if sessionDir == "" {
		sessionDir = "./agentcore-session"
	}
	approvals, err := approval.NewStore(sessionDir + "/approvals")
	if err != nil {
		log.Fatalf("agentcore: open approval store: %v", err)
	}

	bus := events.NewBus(logger)
	if sink, err := events.NewFileLogSink(sessionDir + "/events.log"); err != nil {
		log.Printf("agentcore: file log sink disabled: %v", err)
	} else {
		bus.Subscribe(sink, 64)
	}
	if cfg.Events.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Events.RedisAddr})
		bus.Subscribe(events.NewRedisStreamSink(redisClient, cfg.Events.RedisStream, logger), 64)
	}

	policyEngine := policy.NewEngine(policy.Options{
		Sandbox:                   sandbox,
		Command:                   cmdPolicy,
		Approvals:                 approvals,
		MediumRiskRequiresConfirm: cfg.Policy.ConfirmWrite || cfg.Policy.ConfirmExec,
		AllowedTools:              cfg.Policy.AllowedTools,
		DisallowedTools:           cfg.Policy.DisallowedTools,
	})

	dispatcher := dispatch.New(dispatch.Options{
		Registry: registry,
		Cache:    toolCache,
		Policy:   policyEngine,
		Bus:      bus,
		Logger:   logger,
	})

	templates := promptcompose.NewFileTemplateSource("configs/templates")
	profiles, err := promptcompose.NewProfileRegistry("configs/prompt_profiles.yaml", "configs/prompt_versions.json")
	if err != nil {
		log.Fatalf("agentcore: load prompt profiles: %v", err)
	}
	composer := promptcompose.NewComposer(profiles, templates)

	intents, err := classifier.NewIntentRegistry("configs/intents.yaml")
	if err != nil {
		log.Fatalf("agentcore: load intents: %v", err)
	}
	router := classifier.NewRouter(intents)
	cls := classifier.New(client, cfg.LLM.Model, logger)

	shaper := feedback.NewShaper(feedback.Level(cfg.Compression))

	stepExecutor := runtime.NewStepExecutor(runtime.StepExecutorOptions{
		Client:           client,
		ModelName:        cfg.LLM.Model,
		Composer:         composer,
		Dispatcher:       dispatcher,
		Shaper:           shaper,
		Logger:           logger,
		IterPerStep:      cfg.Limits.IterPerStep,
		StutterWindow:    cfg.Limits.StutterWindow,
		StutterThreshold: cfg.Limits.StutterThreshold,
	})
	replanner := runtime.NewReplanner(runtime.ReplannerOptions{
		Client:    client,
		ModelName: cfg.LLM.Model,
		Composer:  composer,
		Logger:    logger,
	})

	memoryProvider := memory.NewFileProvider(sessionDir + "/memory")

	sessions := session.NewInmemStore()
	orchestrator := runtime.NewOrchestrator(runtime.OrchestratorOptions{
		Classifier:   cls,
		Router:       router,
		Composer:     composer,
		PlanClient:   client,
		ModelName:    cfg.LLM.Model,
		StepExecutor: stepExecutor,
		Replanner:    replanner,
		Approvals:    approvals,
		Bus:          bus,
		Sessions:     sessions,
		Logger:       logger,
		Memory:       memoryProvider,
		Limits: runtime.Limits{
			IterPerStep:      cfg.Limits.IterPerStep,
			IterPerTurn:      cfg.Limits.IterPerTurn,
			StutterWindow:    cfg.Limits.StutterWindow,
			StutterThreshold: cfg.Limits.StutterThreshold,
		},
		DefaultProfile: "developer",
	})

	sessionID := uuid.NewString()
	if _, err := sessions.CreateSession(ctx, sessionID, *projectID, cfg.WorkspaceRoot, time.Now()); err != nil {
		log.Fatalf("agentcore: create session: %v", err)
	}

	runREPL(ctx, orchestrator, approvals, sessionID, *projectID, cfg.WorkspaceRoot)
}

// buildModelClient selects the provider adapter named by cfg.Provider.
// cfg.BaseURL is not passed to any adapter; the anthropic and openai clients
// always use their provider's default endpoint. The bedrock provider authenticates via
// the AWS SDK's default credential chain rather than cfg.APIKey, resolved
// for cfg.Region.
func buildModelClient(ctx context.Context, cfg config.LLMConfig) (model.Client, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewFromAPIKey(cfg.APIKey, cfg.Model)
	case "bedrock":
		return bedrock.NewFromRegion(ctx, cfg.Region, cfg.Model)
	default:
		return anthropic.NewFromAPIKey(cfg.APIKey, cfg.Model)
	}
}

// runREPL reads one user turn per line from stdin and prints the outcome,
// resolving any WAITING_FOR_APPROVAL outcome by asking for a y/n decision
// before re-running the turn.
func runREPL(ctx context.Context, orch *runtime.Orchestrator, approvals *approval.Store, sessionID, projectID, workspaceRoot string) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("agentcore ready. Type a request and press enter; Ctrl-D to exit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		runTurn(ctx, orch, approvals, sessionID, projectID, workspaceRoot, line)
	}
}

func runTurn(ctx context.Context, orch *runtime.Orchestrator, approvals *approval.Store, sessionID, projectID, workspaceRoot, userInput string) {
	traceID := uuid.NewString()
	outcome, err := orch.RunTurn(ctx, runtime.TurnInput{
		SessionID:     sessionID,
		ProjectID:     projectID,
		WorkspaceRoot: workspaceRoot,
		TurnID:        uuid.NewString(),
		TraceID:       traceID,
		UserInput:     userInput,
	})
	if err != nil {
		fmt.Printf("turn failed: %v\n", err)
		return
	}

	switch outcome.State {
	case runtime.StateDone:
		fmt.Println(outcome.DirectAnswer)
	case runtime.StateWaitingForApproval:
		fmt.Printf("this plan requires approval (id=%s):\n", outcome.ApprovalID)
		if outcome.Plan != nil {
			for _, s := range outcome.Plan.Steps {
				fmt.Printf("  - %s\n", s.Description)
			}
		}
		fmt.Print("approve? [y/N] ")
		var decision string
		fmt.Scanln(&decision)
		if decision == "y" || decision == "Y" {
			if err := approvals.Approve(outcome.ApprovalID, "cli-user", ""); err != nil {
				fmt.Printf("approval failed: %v\n", err)
				return
			}
			runTurn(ctx, orch, approvals, sessionID, projectID, workspaceRoot, userInput)
			return
		}
		if err := approvals.Reject(outcome.ApprovalID, "cli-user", "declined at prompt"); err != nil {
			fmt.Printf("rejection failed: %v\n", err)
		}
	case runtime.StateBlocked:
		fmt.Printf("blocked: %s (%s)\n", outcome.BlockedReason, outcome.StopReason)
	default:
		fmt.Printf("turn ended in state %s (%s)\n", outcome.State, outcome.StopReason)
	}
}
