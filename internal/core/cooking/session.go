package cooking

import (
	"fmt"
	"time"

	"recipe-assistant/internal/pkg/common"
)

// State 烹飪會話狀態
type State int

const (
	StateNotStarted State = iota
	StateOnStep
	StateCompleted
	StateAbandoned
)

// String 回傳狀態名稱
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateOnStep:
		return "on_step"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// MarshalText 以名稱序列化狀態
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 由名稱解析狀態
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "not_started":
		*s = StateNotStarted
	case "on_step":
		*s = StateOnStep
	case "completed":
		*s = StateCompleted
	case "abandoned":
		*s = StateAbandoned
	default:
		return fmt.Errorf("unknown session state %q", string(text))
	}
	return nil
}

// Outcome 導航操作的結果
type Outcome string

const (
	OutcomeMoved        Outcome = "moved"
	OutcomeAlreadyFirst Outcome = "already_first"
	OutcomeAlreadyLast  Outcome = "already_last"
)

// Action 目前可執行的操作
type Action string

const (
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionComplete Action = "complete"
	ActionRepeat   Action = "repeat"
	ActionAbandon  Action = "abandon"
)

// Session 以對話 ID 為鍵的烹飪會話，只保存食譜 ID
type Session struct {
	ID          string    `json:"id"`
	RecipeID    string    `json:"recipe_id"`
	CurrentStep int       `json:"current_step"`
	State       State     `json:"state"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSession 建立尚未開始的會話
func NewSession(id, recipeID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		RecipeID:  recipeID,
		State:     StateNotStarted,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Active 會話是否仍在進行
func (s *Session) Active() bool {
	return s.State == StateNotStarted || s.State == StateOnStep
}

// Start NotStarted -> OnStep(1)
func (s *Session) Start(total int) error {
	if s.State != StateNotStarted {
		return common.WithMessage(common.ErrSessionNotActive, fmt.Sprintf("會話狀態為 %s，無法開始", s.State))
	}
	if total < 1 {
		return common.ErrRecipeHasNoSteps
	}
	s.State = StateOnStep
	s.CurrentStep = 1
	return nil
}

// Next OnStep(n) -> OnStep(n+1)，最後一步保持不動
func (s *Session) Next(total int) (Outcome, error) {
	if err := s.requireOnStep(total); err != nil {
		return "", err
	}
	if s.CurrentStep >= total {
		return OutcomeAlreadyLast, nil
	}
	s.CurrentStep++
	return OutcomeMoved, nil
}

// Previous OnStep(n) -> OnStep(n-1)，第一步保持不動
func (s *Session) Previous(total int) (Outcome, error) {
	if err := s.requireOnStep(total); err != nil {
		return "", err
	}
	if s.CurrentStep <= 1 {
		return OutcomeAlreadyFirst, nil
	}
	s.CurrentStep--
	return OutcomeMoved, nil
}

// Complete OnStep(N) -> Completed
func (s *Session) Complete(total int) error {
	if err := s.requireOnStep(total); err != nil {
		return err
	}
	if s.CurrentStep != total {
		return common.WithMessage(common.ErrNotAtLastStep, fmt.Sprintf("目前在第 %d 步，共 %d 步", s.CurrentStep, total))
	}
	s.State = StateCompleted
	return nil
}

// Abandon 任何進行中的狀態 -> Abandoned，步驟歸零
func (s *Session) Abandon() error {
	if !s.Active() {
		return common.WithMessage(common.ErrSessionNotActive, fmt.Sprintf("會話狀態為 %s，無法放棄", s.State))
	}
	s.State = StateAbandoned
	s.CurrentStep = 0
	return nil
}

// Clamp 將持久化的步驟限制在 [1, total]，回傳是否有修正
func (s *Session) Clamp(total int) bool {
	if s.State != StateOnStep || total < 1 {
		return false
	}
	switch {
	case s.CurrentStep < 1:
		s.CurrentStep = 1
	case s.CurrentStep > total:
		s.CurrentStep = total
	default:
		return false
	}
	return true
}

// Available 目前狀態可執行的操作
func (s *Session) Available(total int) []Action {
	if s.State != StateOnStep {
		return []Action{}
	}
	actions := make([]Action, 0, 4)
	if s.CurrentStep < total {
		actions = append(actions, ActionNext)
	} else {
		actions = append(actions, ActionComplete)
	}
	if s.CurrentStep > 1 {
		actions = append(actions, ActionPrevious)
	}
	return append(actions, ActionRepeat, ActionAbandon)
}

func (s *Session) requireOnStep(total int) error {
	if s.State != StateOnStep {
		return common.WithMessage(common.ErrSessionNotActive, fmt.Sprintf("會話狀態為 %s", s.State))
	}
	if total < 1 {
		return common.ErrRecipeHasNoSteps
	}
	s.Clamp(total)
	return nil
}
