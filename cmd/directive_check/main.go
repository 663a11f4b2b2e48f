package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rafpad/internal/config"
	"rafpad/internal/db"
	"rafpad/internal/domain"
	"rafpad/internal/llm"
	"rafpad/internal/service"
)

type Scenario struct {
	Name        string
	Prompt      string
	ShouldEmit  bool
	ExpectedAck string
}

// recordingDispatcher registra las directivas antes de delegar en el dispatcher real.
type recordingDispatcher struct {
	next service.Dispatcher

	mu  sync.Mutex
	got []domain.Directive
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, d domain.Directive) bool {
	r.mu.Lock()
	r.got = append(r.got, d)
	r.mu.Unlock()
	return r.next.Dispatch(ctx, d)
}

func (r *recordingDispatcher) reset() []domain.Directive {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.got
	r.got = nil
	return out
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	store, closeStore, err := db.OpenTaskStore(ctx, cfg)
	if err != nil {
		log.Fatalf("task store: %v", err)
	}
	defer closeStore()

	client, err := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, logger)
	if err != nil {
		log.Fatalf("completion client: %v", err)
	}

	taskSvc := service.NewTaskService(store, cfg.DefaultProjectTag)
	recorder := &recordingDispatcher{next: service.NewCommandDispatcher(taskSvc, taskSvc.DefaultTag(), logger)}
	filter := service.NewCommandFilter(service.DefaultDirectiveExtractor(), recorder, logger)

	opts := service.ChatOptionsFromConfig(cfg)
	opts.Timeout = 60 * time.Second
	chatSvc := service.NewChatService(client, service.NewHistoryStore(cfg.ChatMaxHistory), filter, service.NewFallbackPolicy(nil), logger, opts)

	scenarios := []Scenario{
		{
			Name:        "Pedido explícito",
			Prompt:      "Add a task: buy milk tomorrow morning",
			ShouldEmit:  true,
			ExpectedAck: service.AckTaskAdded,
		},
		{
			Name:        "Recordatorio implícito",
			Prompt:      "Remind me to call the dentist on Friday",
			ShouldEmit:  true,
			ExpectedAck: service.AckTaskAdded,
		},
		{
			Name:       "Charla sin acción",
			Prompt:     "What is the capital of France?",
			ShouldEmit: false,
		},
		{
			Name:       "Saludo (falso positivo)",
			Prompt:     "Hello, how are you?",
			ShouldEmit: false,
		},
	}

	passed := 0
	total := len(scenarios)

	for _, sc := range scenarios {
		fmt.Printf("=== Ejecutando: %s ===\n", sc.Name)

		sessionID := "directive_check_" + uuid.NewString()
		reply := chatSvc.Respond(ctx, sc.Prompt, sessionID, nil)
		emitted := recorder.reset()
		chatSvc.ClearHistory(sessionID)

		fmt.Printf("--- Respuesta: %s\n", reply)
		for _, d := range emitted {
			fmt.Printf("--- Directiva: %s %q\n", d.Kind, d.Payload)
		}

		ok := (len(emitted) > 0) == sc.ShouldEmit
		if ok && sc.ExpectedAck != "" && reply != sc.ExpectedAck {
			ok = false
		}
		if ok {
			fmt.Printf("✅ PASS [%s] esperado=%t emitida=%t\n\n", sc.Name, sc.ShouldEmit, len(emitted) > 0)
			passed++
		} else {
			fmt.Printf("❌ FAIL [%s] esperado=%t emitida=%t\n\n", sc.Name, sc.ShouldEmit, len(emitted) > 0)
		}
	}

	fmt.Printf("Tests: %d/%d pasaron\n", passed, total)
	if passed != total {
		os.Exit(1)
	}
	os.Exit(0)
}
