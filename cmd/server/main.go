package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/server"
	"github.com/UkralStul/forum-view-service/internal/storage"
	"github.com/UkralStul/forum-view-service/internal/storage/inmemory"
	"github.com/UkralStul/forum-view-service/internal/storage/postgres"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	storageType := flag.String("storage", "in-memory", "Storage type (in-memory or postgres)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if err := initLogger(*logLevel); err != nil {
		slog.Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	var store storage.Storage
	var err error

	slog.Info("starting server", "storage", *storageType)
	if *storageType == "postgres" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			slog.Error("DATABASE_URL must be set for postgres storage")
			os.Exit(1)
		}
		store, err = postgres.New(dsn)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
	} else {
		mem := inmemory.New()
		// Заполним данными для тестов
		fillWithMockData(mem)
		store = mem
	}

	srv, err := server.New(store)
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	slog.Info("listening", "addr", ":"+port)
	if err := http.ListenAndServe(":"+port, srv.Routes()); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func fillWithMockData(s *inmemory.Store) {
	now := time.Now().UTC()

	// 1. Пользователи: обычный, модератор и системный аноним
	maxcom := s.AddUser(domain.User{Nick: "maxcom", Name: "Max", Activated: true, Score: 200, Moderator: true})
	hobbit := s.AddUser(domain.User{Nick: "hobbit", Activated: true, Score: 30})
	anonymous := s.AddUser(domain.User{Nick: "anonymous", Anonymous: true, Activated: true})
	s.SetProfile(domain.Profile{UserID: hobbit.ID, ShowPhotos: false, Messages: 25})

	// 2. Раздел и тема
	group := s.AddGroup(domain.Group{Title: "General"})
	topic := s.AddTopic(domain.Topic{
		GroupID:  group.ID,
		AuthorID: maxcom.ID,
		Title:    "Welcome",
		PostedAt: now.Add(-24 * time.Hour),
	})

	// 3. Ветка комментариев с ответами и паузой для разделителя времени
	uaID := s.AddUserAgent("Mozilla/5.0 (X11; Linux x86_64)")
	root := s.AddComment(domain.Comment{
		TopicID:     topic.ID,
		AuthorID:    hobbit.ID,
		PostedAt:    now.Add(-23 * time.Hour),
		PostIP:      "192.0.2.1",
		UserAgentID: uaID,
		Reactions:   domain.Reactions{"beer": {maxcom.ID}},
	}, "First comment, see https://example.org for details")
	s.AddComment(domain.Comment{
		TopicID:  topic.ID,
		AuthorID: anonymous.ID,
		ReplyTo:  root.ID,
		PostedAt: now.Add(-22 * time.Hour),
	}, "Anonymous reply")
	s.AddComment(domain.Comment{
		TopicID:  topic.ID,
		AuthorID: maxcom.ID,
		ReplyTo:  root.ID,
		PostedAt: now.Add(-2 * time.Hour),
	}, "A much later reply")

	// 4. Заметка и пометка для проверки модераторского вида
	s.AddRemark(domain.Remark{OwnerID: maxcom.ID, RefUserID: hobbit.ID, Text: "friendly regular"})
	s.AddWarning(domain.Warning{CommentID: root.ID, AuthorID: maxcom.ID, Message: "watch the tone"})

	slog.Info("mock data filled", "topic", topic.ID)
}
