package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/forum-view-service/internal/auth"
	"github.com/UkralStul/forum-view-service/internal/cache"
	"github.com/UkralStul/forum-view-service/internal/dataloader"
	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/permission"
	"github.com/UkralStul/forum-view-service/internal/reaction"
	"github.com/UkralStul/forum-view-service/internal/storage"
	"github.com/UkralStul/forum-view-service/internal/text"
	"github.com/UkralStul/forum-view-service/internal/view"
	"github.com/UkralStul/forum-view-service/internal/warning"
)

const userCacheSize = 4096

// Server — HTTP-обвязка сервиса: отдает подготовленные к показу
// комментарии и транслирует новые подписчикам.
type Server struct {
	store     storage.Storage
	users     *cache.Users
	groups    *cache.Groups
	tokens    *auth.TokenRegistry
	perms     *permission.Service
	renderer  *text.Renderer
	reactions *reaction.Service
	warnings  *warning.Service
	observer  *view.Observer
	upgrader  websocket.Upgrader
}

// New собирает сервер со всеми зависимостями.
func New(store storage.Storage) (*Server, error) {
	users, err := cache.NewUsers(store, userCacheSize)
	if err != nil {
		return nil, err
	}
	groups, err := cache.NewGroups(store, userCacheSize)
	if err != nil {
		return nil, err
	}
	return &Server{
		store:     store,
		users:     users,
		groups:    groups,
		tokens:    auth.NewTokenRegistry(),
		perms:     permission.New(),
		renderer:  text.NewRenderer(),
		reactions: reaction.NewService(),
		warnings:  warning.NewService(store),
		observer:  view.NewObserver(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// Tokens возвращает реестр токенов сессий.
func (s *Server) Tokens() *auth.TokenRegistry { return s.tokens }

// Routes строит роутер сервиса.
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(auth.Middleware(s.tokens, s.users))
	router.Use(func(next http.Handler) http.Handler {
		return dataloader.Middleware(s.users, s.store, next)
	})

	router.Post("/api/login", s.handleLogin)
	router.Post("/api/logout", s.handleLogout)
	router.Get("/api/whoami", s.handleWhoami)

	router.Get("/api/topic/{topicID}/comments", s.handleTopicComments)
	router.Post("/api/topic/{topicID}/comments", s.handleCreateComment)
	router.Get("/api/topic/{topicID}/stream", s.handleStream)

	router.Get("/api/comment/{commentID}", s.handleComment)
	router.Get("/api/comment/{commentID}/edit", s.handleCommentForEdit)
	router.Get("/api/comment/{commentID}/source", s.handleCommentSource)

	return router
}

// loaderSource — источник данных одного запроса: одиночные лукапы текста
// и автора идут через батчевые лоадеры, плюральные лукапы пользователей —
// через сквозной кеш, остальные методы — прямо в хранилище.
type loaderSource struct {
	storage.Storage
	users   *cache.Users
	loaders *dataloader.Loaders
}

func (l loaderSource) GetMessageText(ctx context.Context, commentID int) (*domain.MsgText, error) {
	return l.loaders.LoadMsgText(ctx, commentID)
}

func (l loaderSource) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	return l.loaders.LoadUser(ctx, id)
}

func (l loaderSource) GetUsersByIDs(ctx context.Context, ids []int) (map[int]*domain.User, error) {
	return l.users.GetUsersByIDs(ctx, ids)
}

// preparer строит презентер для текущего запроса.
func (s *Server) preparer(ctx context.Context) *view.Preparer {
	source := loaderSource{Storage: s.store, users: s.users, loaders: dataloader.For(ctx)}
	return view.NewPreparer(source, source, s.groups, s.perms, s.renderer, s.reactions, s.warnings)
}
