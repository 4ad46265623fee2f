package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"nutrilog/internal/apperror"
	"nutrilog/internal/auth"
	"nutrilog/internal/food"
	"nutrilog/internal/ledger"
	"nutrilog/internal/nutrition"
)

type NutritionHandler struct {
	Svc *nutrition.Service
	Log *zap.Logger
}

type nutritionBody struct {
	Goals         ledger.Goals               `json:"goals"`
	DailyLogs     map[string]ledger.DailyLog `json:"dailyLogs"`
	FavoriteFoods []food.Item                `json:"favoriteFoods"`
}

func bodyFrom(doc nutrition.Document) nutritionBody {
	return nutritionBody{Goals: doc.Goals, DailyLogs: doc.DailyLogs, FavoriteFoods: doc.FavoriteFoods}
}

func (h *NutritionHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	doc, err := h.Svc.Pull(r.Context(), uid)
	if err != nil {
		h.Log.Error("pull nutrition", zap.Uint64("user_id", uid), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, envelope{Error: "server error"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: bodyFrom(doc)})
}

func (h *NutritionHandler) Post(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var body nutritionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "bad json"})
		return
	}
	if body.Goals == (ledger.Goals{}) {
		body.Goals = ledger.DefaultGoals()
	}

	doc, err := h.Svc.Push(r.Context(), uid, nutrition.Document{
		Goals:         body.Goals,
		DailyLogs:     body.DailyLogs,
		FavoriteFoods: body.FavoriteFoods,
	})

	var cooldown *nutrition.CooldownError
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: bodyFrom(doc)})
	case errors.As(err, &cooldown):
		secs := cooldown.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, envelope{Error: cooldown.Error(), RetryAfterSeconds: secs})
	case errors.As(err, &verrs):
		h.Log.Warn("push validation failed", zap.Uint64("user_id", uid), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, envelope{Error: "invalid document", Errors: apperror.CustomValidationError(err)})
	default:
		h.Log.Error("push nutrition", zap.Uint64("user_id", uid), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, envelope{Error: "server error"})
	}
}
