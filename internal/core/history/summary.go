package history

const uncategorized = "uncategorized"

// RecipeCount 食譜完成次數
type RecipeCount struct {
	RecipeID string `json:"recipe_id"`
	Title    string `json:"title"`
	Count    int    `json:"count"`
}

// Summary 紀錄統計，沒有資料時 Empty 為 true
type Summary struct {
	Empty             bool           `json:"empty"`
	TotalCompleted    int            `json:"total_completed"`
	MostCompleted     *RecipeCount   `json:"most_completed,omitempty"`
	MostRecent        *Entry         `json:"most_recent,omitempty"`
	ByCategory        map[string]int `json:"by_category"`
	RatedCount        int            `json:"rated_count"`
	AverageUserRating *float64       `json:"average_user_rating,omitempty"`
	Favorites         int            `json:"favorites"`
}

// Summarize 由最近紀錄計算統計，同次數時以較早出現的食譜為準
func Summarize(recents []Entry) Summary {
	s := Summary{
		Empty:          len(recents) == 0,
		TotalCompleted: len(recents),
		ByCategory:     map[string]int{},
	}
	if s.Empty {
		return s
	}

	counts := make(map[string]*RecipeCount)
	var order []string
	ratingSum := 0
	for i := range recents {
		e := recents[i]

		c, ok := counts[e.RecipeID]
		if !ok {
			c = &RecipeCount{RecipeID: e.RecipeID}
			counts[e.RecipeID] = c
			order = append(order, e.RecipeID)
		}
		c.Count++
		c.Title = e.Title

		category := e.Category
		if category == "" {
			category = uncategorized
		}
		s.ByCategory[category]++

		if e.UserRating != nil {
			s.RatedCount++
			ratingSum += *e.UserRating
		}

		if s.MostRecent == nil || !e.Timestamp.Before(s.MostRecent.Timestamp) {
			s.MostRecent = &recents[i]
		}
	}

	for _, id := range order {
		if s.MostCompleted == nil || counts[id].Count > s.MostCompleted.Count {
			s.MostCompleted = counts[id]
		}
	}
	if s.RatedCount > 0 {
		avg := float64(ratingSum) / float64(s.RatedCount)
		s.AverageUserRating = &avg
	}
	return s
}
