package search

import (
	"fmt"
	"regexp"
	"strconv"

	"recipe-assistant/internal/pkg/common"
	"recipe-assistant/internal/pkg/normalize"
)

var ordinalWords = map[string]int{
	"primeira": 1, "primeiro": 1, "first": 1, "um": 1, "uma": 1, "one": 1,
	"segunda": 2, "segundo": 2, "second": 2, "dois": 2, "duas": 2, "two": 2,
	"terceira": 3, "terceiro": 3, "third": 3, "tres": 3, "three": 3,
	"quarta": 4, "quarto": 4, "fourth": 4, "quatro": 4, "four": 4,
	"quinta": 5, "quinto": 5, "fifth": 5, "cinco": 5, "five": 5,
	"sexta": 6, "sexto": 6, "sixth": 6, "seis": 6, "six": 6,
	"setima": 7, "setimo": 7, "seventh": 7, "sete": 7, "seven": 7,
	"oitava": 8, "oitavo": 8, "eighth": 8, "oito": 8, "eight": 8,
	"nona": 9, "nono": 9, "ninth": 9, "nove": 9, "nine": 9,
	"decima": 10, "decimo": 10, "tenth": 10, "dez": 10, "ten": 10,
}

var selectionNumber = regexp.MustCompile(`\d+`)

// ParseSelection 從 "2"、"receita 3"、"a segunda" 等輸入取出從 1 開始的編號
func ParseSelection(text string) (int, bool) {
	s := normalize.Fold(text)
	if n := selectionNumber.FindString(s); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	for _, w := range normalize.Words(s) {
		if v, ok := ordinalWords[w]; ok {
			return v, true
		}
	}
	return 0, false
}

// Select 依從 1 開始的編號從排序結果中取出一項
func Select[T any](items []T, index int) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, common.WithMessage(common.ErrInvalidSelectionIndex, "沒有可選擇的食譜")
	}
	if index < 1 || index > len(items) {
		return zero, common.WithMessage(common.ErrInvalidSelectionIndex,
			fmt.Sprintf("請選擇 1 到 %d 之間的編號", len(items)))
	}
	return items[index-1], nil
}
