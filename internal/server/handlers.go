package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/UkralStul/forum-view-service/internal/auth"
	"github.com/UkralStul/forum-view-service/internal/dataloader"
	"github.com/UkralStul/forum-view-service/internal/domain"
	"github.com/UkralStul/forum-view-service/internal/view"
)

// dateJumpGap — минимальная пауза между комментариями, после которой
// в ленте показывается разделитель времени.
const dateJumpGap = 4 * time.Hour

// === Session Handlers ===

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nick string `json:"nick"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, err := s.store.GetUserByNick(r.Context(), req.Nick)
	if err != nil {
		writeError(w, err)
		return
	}

	// Отмечаем вход от имени только что аутентифицированного принципала
	ctx := auth.WithContext(r.Context(), auth.ContextFor(user))
	if err := auth.RecordLogin(ctx, s.store, time.Now()); err != nil {
		writeError(w, err)
		return
	}

	token := s.tokens.Issue(user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.BearerToken(r); ok {
		s.tokens.Revoke(token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	resp, _ := auth.WithSession(r.Context(), func(session auth.Session) (map[string]any, error) {
		nick, _ := session.Nickname()
		return map[string]any{
			"authorized":    session.Authorized(),
			"nick":          nick,
			"corrector":     session.Corrector(),
			"moderator":     session.Moderator(),
			"administrator": session.Administrator(),
		}, nil
	})
	writeJSON(w, http.StatusOK, resp)
}

// === Comment Handlers ===

// viewerState собирает зрителя: сессию, профиль и игнор-лист.
func (s *Server) viewerState(ctx context.Context) (auth.Session, domain.Profile, map[int]bool, error) {
	session := auth.CurrentSession(ctx)
	profile, err := auth.CurrentProfile(ctx, s.store)
	if err != nil {
		return session, domain.Profile{}, nil, err
	}

	ignore := map[int]bool{}
	if user, ok := session.User(); ok {
		ids, err := s.store.GetIgnoredUserIDs(ctx, user.ID)
		if err != nil {
			return session, profile, nil, err
		}
		ignore = lo.SliceToMap(ids, func(id int) (int, bool) { return id, true })
	}
	return session, profile, ignore, nil
}

func (s *Server) handleTopicComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	topicID, err := strconv.Atoi(chi.URLParam(r, "topicID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid topic id"})
		return
	}

	session, profile, ignore, err := s.viewerState(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	topic, err := s.store.GetTopicByID(ctx, topicID)
	if err != nil {
		writeError(w, err)
		return
	}

	comments, err := s.store.GetCommentsByTopicID(ctx, topicID)
	if err != nil {
		writeError(w, err)
		return
	}

	filterShow := r.URL.Query().Get("filter") == "show"
	tree := view.NewTree(comments)

	// В режиме filter=show удаленные комментарии и комментарии
	// игнорируемых авторов скрываются целиком
	hidden := map[int]bool{}
	if filterShow {
		for _, c := range comments {
			if c.Deleted || ignore[c.AuthorID] {
				hidden[c.ID] = true
			}
		}
	}
	visible := lo.Filter(comments, func(c *domain.Comment, _ int) bool {
		return !hidden[c.ID]
	})

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageComments := paginate(visible, page, profile.Messages)

	prepared, err := s.preparer(ctx).PrepareList(ctx, tree, pageComments, topic, hidden, session, profile, ignore, filterShow)
	if err != nil {
		writeError(w, err)
		return
	}

	jumps := lo.Keys(view.BuildDateJumpSet(pageComments, dateJumpGap))
	sort.Ints(jumps)

	writeJSON(w, http.StatusOK, map[string]any{
		"topic":     topic,
		"comments":  prepared,
		"dateJumps": jumps,
	})
}

func paginate(comments []*domain.Comment, page, size int) []*domain.Comment {
	if size <= 0 {
		size = domain.DefaultProfile().Messages
	}
	start := page * size
	if start < 0 || start >= len(comments) {
		return []*domain.Comment{}
	}
	end := start + size
	if end > len(comments) {
		end = len(comments)
	}
	return comments[start:end]
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	commentID, err := strconv.Atoi(chi.URLParam(r, "commentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid comment id"})
		return
	}

	session, profile, ignore, err := s.viewerState(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	comment, err := s.store.GetCommentByID(ctx, commentID)
	if err != nil {
		writeError(w, err)
		return
	}
	topic, err := s.store.GetTopicByID(ctx, comment.TopicID)
	if err != nil {
		writeError(w, err)
		return
	}

	prepared, err := s.preparer(ctx).PrepareSingle(ctx, comment, session, profile, topic, ignore)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prepared)
}

func (s *Server) handleCommentForEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	commentID, err := strconv.Atoi(chi.URLParam(r, "commentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid comment id"})
		return
	}

	prepared, err := auth.WithAuthenticated(ctx, func(auth.Session) (*view.PreparedComment, error) {
		comment, err := s.store.GetCommentByID(ctx, commentID)
		if err != nil {
			return nil, err
		}
		msgText, err := dataloader.For(ctx).LoadMsgText(ctx, commentID)
		if err != nil {
			return nil, err
		}
		return s.preparer(ctx).PrepareForEdit(ctx, comment, msgText)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prepared)
}

// handleCommentSource отдает модераторам исходный текст и метаданные
// отправки комментария.
func (s *Server) handleCommentSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	commentID, err := strconv.Atoi(chi.URLParam(r, "commentID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid comment id"})
		return
	}

	resp, err := auth.WithModerator(ctx, func(auth.Session) (map[string]any, error) {
		comment, err := s.store.GetCommentByID(ctx, commentID)
		if err != nil {
			return nil, err
		}
		msgText, err := dataloader.For(ctx).LoadMsgText(ctx, commentID)
		if err != nil {
			return nil, err
		}
		userAgent := ""
		if comment.UserAgentID != 0 {
			userAgent, err = s.store.GetUserAgentByID(ctx, comment.UserAgentID)
			if err != nil {
				return nil, err
			}
		}
		return map[string]any{
			"text":      msgText.Text,
			"postIP":    comment.PostIP,
			"userAgent": userAgent,
		}, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	topicID, err := strconv.Atoi(chi.URLParam(r, "topicID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid topic id"})
		return
	}

	var req struct {
		Title   string `json:"title"`
		Text    string `json:"text"`
		ReplyTo int    `json:"replyTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var broadcast *view.PreparedComment
	prepared, err := auth.WithAuthenticated(ctx, func(session auth.Session) (*view.PreparedComment, error) {
		user, _ := session.User()
		comment := &domain.Comment{
			TopicID:  topicID,
			AuthorID: user.ID,
			Title:    req.Title,
			ReplyTo:  req.ReplyTo,
			PostIP:   remoteAddr(r),
		}
		if _, err := s.store.CreateComment(ctx, comment, req.Text); err != nil {
			return nil, err
		}

		topic, err := s.store.GetTopicByID(ctx, comment.TopicID)
		if err != nil {
			return nil, err
		}
		profile, err := auth.CurrentProfile(ctx, s.store)
		if err != nil {
			return nil, err
		}

		// Подписчики не наследуют сессию создателя: для рассылки комментарий
		// собирается заново под анонимного зрителя, без модераторских полей
		// и без чужих прав
		broadcast, err = s.preparer(ctx).PrepareSingle(ctx, comment, auth.AnonymousSession(), domain.DefaultProfile(), topic, nil)
		if err != nil {
			return nil, err
		}
		return s.preparer(ctx).PrepareSingle(ctx, comment, session, profile, topic, nil)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Уведомляем подписчиков темы
	s.observer.Notify(topicID, broadcast)
	writeJSON(w, http.StatusCreated, prepared)
}

func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
