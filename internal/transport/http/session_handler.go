package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/websocket"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionHandler drives one quiz session per websocket connection.
type SessionHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewSessionHandler(service *app.QuizService) *SessionHandler {
	return &SessionHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string             `json:"questionId"`
	AnswerID   *string            `json:"answerId,omitempty"`
	Variables  map[string]float64 `json:"variables,omitempty"`
	ElapsedMs  int64              `json:"elapsedMs"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type answerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Score      int    `json:"score"`
	Answered   int    `json:"answered"`
	Remaining  int    `json:"remaining"`
}

// optionView strips correctness flags and explanations from what students see.
type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionView struct {
	ID            string       `json:"id"`
	Prompt        string       `json:"prompt"`
	Difficulty    string       `json:"difficulty"`
	Points        int          `json:"points"`
	Options       []optionView `json:"options,omitempty"`
	Parametrized  bool         `json:"parametrized"`
	VariableNames []string     `json:"variableNames,omitempty"`
}

type sessionView struct {
	ID               string         `json:"id"`
	QuizID           string         `json:"quizId"`
	Status           string         `json:"status"`
	Score            int            `json:"score"`
	TimeLimitSeconds int            `json:"timeLimitSeconds,omitempty"`
	Questions        []questionView `json:"questions"`
}

// ServeWS upgrades the request, builds a session for the student, and then
// relays start/answer/finish/abandon commands into the engine.
func (h *SessionHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	studentID := r.URL.Query().Get("studentId")
	if quizID == "" || studentID == "" {
		http.Error(w, "missing quizId or studentId", http.StatusBadRequest)
		return
	}
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.BuildSession(r.Context(), quizID, studentID, count)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: viewOf(session)}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			updated, err := h.service.Start(r.Context(), session.ID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "session", Payload: viewOf(updated)}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(err)
				continue
			}
			record, updated, err := h.service.SubmitAnswer(r.Context(), session.ID, payload.QuestionID, domain.Submission{
				AnswerID:  payload.AnswerID,
				Variables: payload.Variables,
			}, payload.ElapsedMs)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID: record.QuestionID,
				Correct:    record.IsCorrect,
				Score:      updated.Score,
				Answered:   updated.Answered(),
				Remaining:  len(updated.Questions) - updated.Answered(),
			}}
			if updated.Status.Terminal() {
				h.sendResult(r.Context(), send, session.ID)
			}
		case "finish":
			if _, err := h.service.Finish(r.Context(), session.ID); err != nil {
				send <- errMsg(err)
				continue
			}
			h.sendResult(r.Context(), send, session.ID)
		case "abandon":
			if _, err := h.service.Abandon(r.Context(), session.ID); err != nil {
				send <- errMsg(err)
				continue
			}
			h.sendResult(r.Context(), send, session.ID)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}

func (h *SessionHandler) sendResult(ctx context.Context, send chan outboundMessage[any], sessionID string) {
	result, err := h.service.Compile(ctx, sessionID)
	if err != nil {
		send <- errMsg(err)
		return
	}
	send <- outboundMessage[any]{Type: "result", Payload: result}
}

func errMsg(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

func viewOf(session *domain.Session) sessionView {
	questions := make([]questionView, 0, len(session.Questions))
	for _, sq := range session.Questions {
		q := sq.Question
		view := questionView{
			ID:           q.ID,
			Prompt:       q.Prompt,
			Difficulty:   string(q.Difficulty),
			Points:       q.PointsOrDefault(),
			Parametrized: q.IsParametrized(),
		}
		byID := make(map[string]domain.Option, len(q.Options))
		for _, opt := range q.Options {
			byID[opt.ID] = opt
		}
		for _, id := range sq.OptionOrder {
			if opt, ok := byID[id]; ok {
				view.Options = append(view.Options, optionView{ID: opt.ID, Text: opt.Text})
			}
		}
		for name := range q.Variables {
			view.VariableNames = append(view.VariableNames, name)
		}
		sort.Strings(view.VariableNames)
		questions = append(questions, view)
	}
	return sessionView{
		ID:               session.ID,
		QuizID:           session.QuizID,
		Status:           string(session.Status),
		Score:            session.Score,
		TimeLimitSeconds: session.TimeLimitSeconds,
		Questions:        questions,
	}
}
