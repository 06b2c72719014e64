package cooking

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"recipe-assistant/internal/core/history"
	"recipe-assistant/internal/core/recipe"
	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

// RecipeResolver 依 id 取得食譜
type RecipeResolver interface {
	Get(ctx context.Context, id string) (recipe.Recipe, error)
}

// CompletionRecorder 記錄完成的烹飪
type CompletionRecorder interface {
	RecordCompletion(ctx context.Context, r recipe.Recipe, rating *int) error
}

// View 回傳給對話層的會話快照
type View struct {
	ConversationID string   `json:"conversation_id"`
	RecipeID       string   `json:"recipe_id"`
	Title          string   `json:"title"`
	State          State    `json:"state"`
	Step           int      `json:"step"`
	TotalSteps     int      `json:"total_steps"`
	StepText       string   `json:"step_text,omitempty"`
	Available      []Action `json:"available"`
	Outcome        Outcome  `json:"outcome,omitempty"`
}

// CompletionResult 完成烹飪的結果，記錄失敗時 Saved 為 false
type CompletionResult struct {
	Session View   `json:"session"`
	Saved   bool   `json:"saved"`
	Warning string `json:"warning,omitempty"`
}

const lockStripes = 64

// Service 烹飪會話服務
type Service struct {
	store    Store
	recipes  RecipeResolver
	recorder CompletionRecorder
	now      func() time.Time
	locks    [lockStripes]sync.Mutex
}

// NewService 創建烹飪會話服務
func NewService(store Store, recipes RecipeResolver, recorder CompletionRecorder) *Service {
	return &Service{
		store:    store,
		recipes:  recipes,
		recorder: recorder,
		now:      time.Now,
	}
}

// lock 同一個對話的操作依序執行
func (s *Service) lock(conversationID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Begin 為對話開始新的烹飪會話，取代該對話先前的會話
func (s *Service) Begin(ctx context.Context, conversationID, recipeID string) (View, error) {
	if conversationID == "" {
		conversationID = common.GenerateUUID()
	}
	defer s.lock(conversationID)()

	r, err := s.recipes.Get(ctx, recipeID)
	if err != nil {
		return View{}, err
	}

	sess := NewSession(conversationID, r.ID, s.now())
	if err := sess.Start(r.StepCount()); err != nil {
		common.LogWarn("無法開始烹飪會話",
			zap.String("conversation_id", conversationID),
			zap.String("recipe_id", r.ID),
			zap.Error(err),
		)
		return View{}, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return View{}, fmt.Errorf("failed to save session: %w", err)
	}

	common.LogInfo("烹飪會話已開始",
		zap.String("conversation_id", conversationID),
		zap.String("recipe_id", r.ID),
		zap.Int("total_steps", r.StepCount()),
	)
	return s.view(sess, r, ""), nil
}

// Current 讀取目前步驟，不改變狀態
func (s *Service) Current(ctx context.Context, conversationID string) (View, error) {
	defer s.lock(conversationID)()

	sess, r, err := s.load(ctx, conversationID)
	if err != nil {
		return View{}, err
	}
	return s.view(sess, r, ""), nil
}

// Next 前往下一步
func (s *Service) Next(ctx context.Context, conversationID string) (View, error) {
	return s.navigate(ctx, conversationID, (*Session).Next)
}

// Previous 回到上一步
func (s *Service) Previous(ctx context.Context, conversationID string) (View, error) {
	return s.navigate(ctx, conversationID, (*Session).Previous)
}

func (s *Service) navigate(ctx context.Context, conversationID string, move func(*Session, int) (Outcome, error)) (View, error) {
	defer s.lock(conversationID)()

	sess, r, err := s.load(ctx, conversationID)
	if err != nil {
		return View{}, err
	}

	outcome, err := move(sess, r.StepCount())
	if err != nil {
		return View{}, err
	}
	if outcome == OutcomeMoved {
		if err := s.save(ctx, sess); err != nil {
			return View{}, err
		}
	}

	common.LogDebug("烹飪步驟切換",
		zap.String("conversation_id", conversationID),
		zap.Int("step", sess.CurrentStep),
		zap.String("outcome", string(outcome)),
	)
	return s.view(sess, r, outcome), nil
}

// Abandon 放棄烹飪，只需要會話本身，食譜已不存在時仍可放棄
func (s *Service) Abandon(ctx context.Context, conversationID string) (View, error) {
	defer s.lock(conversationID)()

	sess, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return View{}, err
	}
	if err := sess.Abandon(); err != nil {
		return View{}, err
	}
	if err := s.save(ctx, sess); err != nil {
		return View{}, err
	}

	common.LogInfo("烹飪會話已放棄",
		zap.String("conversation_id", conversationID),
		zap.String("recipe_id", sess.RecipeID),
	)

	r, err := s.recipes.Get(ctx, sess.RecipeID)
	if err != nil {
		common.LogWarn("放棄的會話找不到食譜",
			zap.String("conversation_id", conversationID),
			zap.String("recipe_id", sess.RecipeID),
			zap.Error(err),
		)
		r = recipe.Recipe{ID: sess.RecipeID}
	}
	return s.view(sess, r, ""), nil
}

// Forget 刪除對話的會話紀錄
func (s *Service) Forget(ctx context.Context, conversationID string) error {
	defer s.lock(conversationID)()

	if err := s.store.Delete(ctx, conversationID); err != nil {
		return err
	}
	common.LogInfo("烹飪會話已刪除", zap.String("conversation_id", conversationID))
	return nil
}

// Complete 在最後一步完成烹飪並寫入最近紀錄，評分在任何狀態變更前驗證
func (s *Service) Complete(ctx context.Context, conversationID string, rating *int) (CompletionResult, error) {
	if err := history.ValidateRating(rating); err != nil {
		return CompletionResult{}, err
	}
	defer s.lock(conversationID)()

	sess, r, err := s.load(ctx, conversationID)
	if err != nil {
		return CompletionResult{}, err
	}
	if err := sess.Complete(r.StepCount()); err != nil {
		return CompletionResult{}, err
	}
	if err := s.save(ctx, sess); err != nil {
		return CompletionResult{}, err
	}

	result := CompletionResult{Session: s.view(sess, r, ""), Saved: true}
	if err := s.recorder.RecordCompletion(ctx, r, rating); err != nil {
		// 紀錄失敗不影響會話完成
		common.LogWarn("無法寫入烹飪紀錄",
			zap.String("conversation_id", conversationID),
			zap.String("recipe_id", r.ID),
			zap.Error(err),
		)
		result.Saved = false
		result.Warning = common.AsCustomError(err).Message
	}

	common.LogInfo("烹飪會話已完成",
		zap.String("conversation_id", conversationID),
		zap.String("recipe_id", r.ID),
		zap.Bool("saved", result.Saved),
	)
	return result, nil
}

// ActiveSessions 列出進行中的會話
func (s *Service) ActiveSessions(ctx context.Context) ([]*Session, error) {
	return s.store.ListActive(ctx)
}

// ActiveCount 進行中的會話數量
func (s *Service) ActiveCount(ctx context.Context) (int, error) {
	active, err := s.ActiveSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return len(active), nil
}

// load 讀取會話並重新解析食譜，越界的步驟在讀取時修正
func (s *Service) load(ctx context.Context, conversationID string) (*Session, recipe.Recipe, error) {
	sess, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return nil, recipe.Recipe{}, err
	}
	r, err := s.recipes.Get(ctx, sess.RecipeID)
	if err != nil {
		return nil, recipe.Recipe{}, err
	}

	if sess.Clamp(r.StepCount()) {
		common.LogWarn("會話步驟超出範圍，已修正",
			zap.String("conversation_id", conversationID),
			zap.Int("step", sess.CurrentStep),
			zap.Int("total_steps", r.StepCount()),
		)
		if err := s.save(ctx, sess); err != nil {
			return nil, recipe.Recipe{}, err
		}
	}
	return sess, r, nil
}

func (s *Service) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Service) view(sess *Session, r recipe.Recipe, outcome Outcome) View {
	v := View{
		ConversationID: sess.ID,
		RecipeID:       sess.RecipeID,
		Title:          r.Title,
		State:          sess.State,
		Step:           sess.CurrentStep,
		TotalSteps:     r.StepCount(),
		Available:      sess.Available(r.StepCount()),
		Outcome:        outcome,
	}
	if sess.State == StateOnStep {
		v.StepText, _ = r.Step(sess.CurrentStep)
	}
	return v
}
