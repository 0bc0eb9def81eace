// Obra orchestrator server - runs the Orchestration Engine scheduler loop
// and exposes a minimal HTTP surface for health and metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/obra/obra/pkg/agentsession"
	"github.com/obra/obra/pkg/config"
	"github.com/obra/obra/pkg/confidence"
	"github.com/obra/obra/pkg/contextbuilder"
	"github.com/obra/obra/pkg/decision"
	"github.com/obra/obra/pkg/hooks"
	"github.com/obra/obra/pkg/interactive"
	"github.com/obra/obra/pkg/iteration"
	"github.com/obra/obra/pkg/llmclient"
	"github.com/obra/obra/pkg/model"
	"github.com/obra/obra/pkg/promptbuilder"
	"github.com/obra/obra/pkg/quality"
	"github.com/obra/obra/pkg/registry"
	"github.com/obra/obra/pkg/retry"
	"github.com/obra/obra/pkg/state"
	"github.com/obra/obra/pkg/store"
	"github.com/obra/obra/pkg/telemetry"
	"github.com/obra/obra/pkg/validator"
	"github.com/obra/obra/pkg/version"
)

// llmSummarizer adapts an llmclient.Client into contextbuilder.Summarizer
// by asking the model for a summary under a target token budget.
type llmSummarizer struct {
	llm llmclient.Client
}

func (s llmSummarizer) Summarize(ctx context.Context, text string, targetTokens int) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following in roughly %d tokens, preserving any decisions or constraints:\n\n%s",
		targetTokens, text,
	)
	return s.llm.Generate(ctx, prompt, llmclient.Options{MaxTokens: targetTokens})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// registerProviders wires the in-tree plugin constructors into fresh
// registries. Obra ships exactly one agent-session provider ("claude-code",
// a headless subprocess per §4.4) and one LLM provider ("http", a generic
// chat-completion endpoint per §4.3); additional providers register here
// the same way.
func registerProviders() (*registry.AgentRegistry, *registry.LLMRegistry) {
	agents := registry.NewAgentRegistry()
	agents.Register("claude-code", func(ctx context.Context, cfg map[string]any) (agentsession.Session, error) {
		return agentsession.NewSubprocess(), nil
	})

	llms := registry.NewLLMRegistry()
	llms.Register("http", func(ctx context.Context, cfg map[string]any) (llmclient.Client, error) {
		name, _ := cfg["name"].(string)
		baseURL, _ := cfg["base_url"].(string)
		apiKey, _ := cfg["api_key"].(string)
		modelName, _ := cfg["model"].(string)
		contextWindow, _ := cfg["context_window"].(int)
		timeout, _ := cfg["timeout"].(time.Duration)
		return llmclient.NewHTTPProvider(llmclient.HTTPProviderConfig{
			Name:          name,
			BaseURL:       baseURL,
			APIKey:        apiKey,
			Model:         modelName,
			ContextWindow: contextWindow,
			Timeout:       timeout,
		}), nil
	})

	return agents, llms
}

func buildHooks(cfg *config.Config, tm *telemetry.Manager) *hooks.Dispatcher {
	var built []hooks.Hook

	if sc := cfg.Hooks.Slack; sc != nil && sc.Enabled {
		token := os.Getenv(sc.TokenEnv)
		if h := hooks.NewSlackHook(token, sc.Channel, sc.DashboardURL); h != nil {
			built = append(built, h)
		}
	}
	built = append(built, hooks.NewTelemetryHook(tm))
	built = append(built, hooks.NewCommitWriterHook())
	built = append(built, hooks.NewDocMaintenanceHook())

	return hooks.NewDispatcher(built...)
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	tc := cfg.Hooks.Telemetry
	if tc == nil {
		return telemetry.Config{}
	}
	return telemetry.Config{
		Enabled:       tc.Enabled,
		ServiceName:   tc.ServiceName,
		MetricsAddr:   tc.MetricsAddr,
		TraceExporter: tc.TraceExporter,
	}
}

func driverConfig(cfg *config.Config) iteration.Config {
	return iteration.Config{
		Header: promptbuilder.Header{
			TaskType:          "work-item",
			RequiredSections:  []string{"summary", "changes"},
			MinLength:         1,
			MaxResponseTokens: cfg.LLM.MaxTokens,
		},
		ValidatorRules: validator.Rules{
			RequiredSections: []string{"summary", "changes"},
		},
		Weights: confidence.DefaultWeights(),
		Thresholds: decision.Thresholds{
			HighConfidence:   cfg.Decision.HighConfidence,
			MediumConfidence: cfg.Decision.MediumConfidence,
			AcceptQuality:    cfg.Decision.AcceptQuality,
			RetryCap:         cfg.Decision.RetryCap,
		},
		Retry: retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Base:        time.Duration(cfg.Retry.BaseDelaySeconds * float64(time.Second)),
			Cap:         time.Duration(cfg.Retry.MaxDelaySeconds * float64(time.Second)),
			Multiplier:  cfg.Retry.Multiplier,
			JitterMax:   time.Duration(cfg.Retry.JitterSeconds * float64(time.Second)),
		},
		SendDeadline:       cfg.Agent.ResponseTimeout(),
		ContextWindow:      defaultContextWindow,
		ReserveForResponse: cfg.LLM.MaxTokens,
		SafetyMargin:       1_000,
		WorkspaceDir:       cfg.Agent.Workspace,
	}
}

// defaultContextWindow mirrors llmclient.NewHTTPProvider's own 128000
// fallback; Obra's config doesn't expose a context-window key separate
// from max_tokens.
const defaultContextWindow = 128_000

// scheduler polls for ready work items and runs each through a Driver,
// bounded to cfg.Orchestration.ConcurrentItems concurrent items.
func scheduler(ctx context.Context, stateManager *state.StateManager, driver *iteration.Driver, projectID int64, concurrency int, pollInterval time.Duration) {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	inFlight := make(map[int64]bool)
	var mu sync.Mutex

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-ticker.C:
			ids, err := stateManager.ReadyWorkItems(ctx, projectID)
			if err != nil {
				log.Printf("scheduler: list ready work items: %v", err)
				continue
			}
			for _, id := range ids {
				mu.Lock()
				already := inFlight[id]
				if !already {
					inFlight[id] = true
				}
				mu.Unlock()
				if already {
					continue
				}

				if err := stateManager.UpdateStatus(ctx, id, model.StatusReady, driver.Owner); err != nil {
					log.Printf("scheduler: mark work item %d ready: %v", id, err)
					mu.Lock()
					delete(inFlight, id)
					mu.Unlock()
					continue
				}

				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					wg.Wait()
					return
				}

				wg.Add(1)
				go func(workItemID int64) {
					defer wg.Done()
					defer func() { <-sem }()
					defer func() {
						mu.Lock()
						delete(inFlight, workItemID)
						mu.Unlock()
					}()
					if err := driver.Run(ctx, workItemID); err != nil {
						log.Printf("scheduler: run work item %d: %v", workItemID, err)
					}
				}(id)
			}
		}
	}
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "debug")
	gin.SetMode(ginMode)

	log.Printf("Starting %s", version.Full())
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbCfg, err := store.ConfigFromURL(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to build database config: %v", err)
	}

	dbClient, err := store.NewClient(ctx, dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("Connected to PostgreSQL database")

	stateManager := state.New(dbClient)
	stateManager.MaxDepth = cfg.Dependencies.MaxDepth

	telemetryMgr, err := telemetry.NewManager(ctx, telemetryConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := telemetryMgr.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	agentRegistry, llmRegistry := registerProviders()

	llmClient, err := llmRegistry.Build(ctx, cfg.LLM.Type, map[string]any{
		"name":           cfg.LLM.Type,
		"base_url":       cfg.LLM.Endpoint,
		"api_key":        os.Getenv("OBRA_LLM_API_KEY"),
		"model":          cfg.LLM.Model,
		"context_window": defaultContextWindow,
		"timeout":        cfg.LLM.Timeout(),
	})
	if err != nil {
		log.Fatalf("Failed to build LLM provider %q: %v", cfg.LLM.Type, err)
	}
	llmClient, err = llmclient.NewDecorated(llmClient, cfg.LLM.CacheSize, llmclient.DefaultBackoffConfig)
	if err != nil {
		log.Fatalf("Failed to wrap LLM provider %q: %v", cfg.LLM.Type, err)
	}

	session, err := agentRegistry.Build(ctx, cfg.Agent.Type, map[string]any{})
	if err != nil {
		log.Fatalf("Failed to build agent session provider %q: %v", cfg.Agent.Type, err)
	}
	if err := session.Initialize(ctx, agentsession.Config{
		WorkspaceDir:   cfg.Agent.Workspace,
		StallTimeout:   cfg.Agent.ResponseTimeout(),
		StartupTimeout: 30 * time.Second,
		DrainWindow:    5 * time.Second,
	}); err != nil {
		log.Fatalf("Failed to initialize agent session: %v", err)
	}
	defer func() {
		if err := session.Cleanup(); err != nil {
			log.Printf("Error cleaning up agent session: %v", err)
		}
	}()

	qualityController := quality.New(llmClient)
	builder := contextbuilder.New(llmSummarizer{llm: llmClient})
	plane := interactive.New(64)
	dispatcher := buildHooks(cfg, telemetryMgr)

	driver := &iteration.Driver{
		State:   stateManager,
		Session: session,
		Quality: qualityController,
		Builder: builder,
		Plane:   plane,
		Hooks:   dispatcher,
		Owner:   "obra-scheduler",
		Config:  driverConfig(cfg),
	}

	projectID := int64(1)
	if _, err := stateManager.GetProject(ctx, projectID); err != nil {
		projectID, err = stateManager.CreateProject(ctx, "default", "auto-created default project", cfg.Agent.Workspace)
		if err != nil {
			log.Fatalf("Failed to create default project: %v", err)
		}
	}

	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	go scheduler(schedCtx, stateManager, driver, projectID, cfg.Orchestration.ConcurrentItems, 2*time.Second)

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := dbClient.Health(reqCtx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbHealth,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"version":  version.Full(),
			"database": dbHealth,
			"agents":   agentRegistry.Names(),
			"llms":     llmRegistry.Names(),
		})
	})

	router.GET("/metrics", gin.WrapH(telemetryMgr.Handler()))

	router.GET("/work-items/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid work item id"})
			return
		}
		item, err := stateManager.GetWorkItem(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, item)
	})

	router.GET("/projects/:id/status", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
			return
		}
		project, err := stateManager.GetProject(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		milestones, err := stateManager.Milestones(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ready, err := stateManager.ReadyWorkItems(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"project":          project,
			"milestones":       milestones,
			"ready_work_items": ready,
		})
	})

	router.POST("/projects/:id/checkpoints", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
			return
		}
		var body struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&body)
		checkpointID, err := stateManager.Snapshot(c.Request.Context(), id, body.Reason)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"checkpoint_id": checkpointID})
	})

	router.POST("/checkpoints/:id/restore", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid checkpoint id"})
			return
		}
		if err := stateManager.RestoreCheckpoint(c.Request.Context(), id); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "restored"})
	})

	router.POST("/breakpoints/:id/resolve", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid breakpoint id"})
			return
		}
		var body struct {
			Resolution model.Resolution `json:"resolution" binding:"required"`
			Feedback   string            `json:"feedback"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := stateManager.ResolveBreakpoint(c.Request.Context(), id, body.Resolution, body.Feedback); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "resolved"})
	})

	log.Printf("HTTP server listening on :%s", httpPort)
	log.Printf("Health check available at: http://localhost:%s/health", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
