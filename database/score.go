package database

import (
	"fmt"
	"strings"
)

// Score is the closed grading scale of an evaluation.
type Score string

const (
	ScoreSuperior Score = "Superior"
	ScoreAlto     Score = "Alto"
	ScoreBasico   Score = "Básico"
	ScoreBajo     Score = "Bajo"
)

// Scores lists the scale from highest to lowest.
var Scores = []Score{ScoreSuperior, ScoreAlto, ScoreBasico, ScoreBajo}

// ParseScore accepts any casing and the unaccented "basico".
func ParseScore(s string) (Score, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "superior":
		return ScoreSuperior, nil
	case "alto":
		return ScoreAlto, nil
	case "básico", "basico":
		return ScoreBasico, nil
	case "bajo":
		return ScoreBajo, nil
	}
	return "", fmt.Errorf("score %q is not one of Superior, Alto, Básico, Bajo", s)
}

// Valid reports whether s is one of the canonical spellings.
func (s Score) Valid() bool {
	for _, v := range Scores {
		if s == v {
			return true
		}
	}
	return false
}

// Passing reports whether the score approves the achievement; Bajo does not.
func (s Score) Passing() bool {
	return s == ScoreSuperior || s == ScoreAlto || s == ScoreBasico
}
