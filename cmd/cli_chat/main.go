package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rafpad/internal/config"
	"rafpad/internal/db"
	"rafpad/internal/domain"
	"rafpad/internal/llm"
	"rafpad/internal/service"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	store, closeStore, err := db.OpenTaskStore(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	var llmClient llm.CompletionClient
	client, err := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, logger)
	if err != nil {
		fmt.Printf("Aviso: %v. Se usarán respuestas de respaldo.\n", err)
	} else {
		llmClient = client
	}

	history := service.NewHistoryStore(cfg.ChatMaxHistory)
	defer history.Close()

	taskSvc := service.NewTaskService(store, cfg.DefaultProjectTag)
	dispatcher := service.NewCommandDispatcher(taskSvc, taskSvc.DefaultTag(), logger)
	filter := service.NewCommandFilter(service.DefaultDirectiveExtractor(), dispatcher, logger)
	chatSvc := service.NewChatService(llmClient, history, filter, service.NewFallbackPolicy(nil), logger, service.ChatOptionsFromConfig(cfg))

	sessionID := uuid.NewString()
	fmt.Printf("---- Modo Chat (sesión %s) ----\n", sessionID)
	fmt.Println("Comandos: /history, /clear, /exit")

	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		switch strings.ToLower(text) {
		case "/exit", "salir", "exit":
			fmt.Println("Saliendo del chat...")
			return
		case "/clear":
			chatSvc.ClearHistory(sessionID)
			fmt.Println("Historial borrado.")
			continue
		case "/history":
			printHistory(chatSvc.History(sessionID))
			continue
		}

		reply := chatSvc.Respond(ctx, text, sessionID, nil)
		fmt.Printf("rafpad > %s\n", reply)
	}
}

func printHistory(history []domain.ChatMessage) {
	if len(history) == 0 {
		fmt.Println("(historial vacío)")
		return
	}
	for _, msg := range history {
		fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Local().Format("15:04:05"), msg.Role, msg.Content)
	}
}
