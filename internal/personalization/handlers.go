package personalization

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/avnikapoor/stylora-backend/internal/common/utils"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func userIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	return id, err == nil && id > 0
}

// Recommend scores the submitted candidates and returns the diversified
// presented set. Read-path failures inside the engine degrade to
// non-personalized scoring, so this endpoint never 500s on store issues.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var dto RecommendRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	candidates := make([]*OutfitCandidate, 0, len(dto.Candidates))
	for _, c := range dto.Candidates {
		candidates = append(candidates, &OutfitCandidate{
			ID:          c.ID,
			Colors:      c.Colors,
			Style:       c.Style,
			Occasion:    c.Occasion,
			Fabric:      c.Fabric,
			Items:       c.Items,
			Description: c.Description,
		})
	}

	matches := h.engine.ScoreAndDiversify(r.Context(), userID, candidates)
	utils.RespondWithData(w, http.StatusOK, matches)
}

func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	occasion := r.URL.Query().Get("occasion")
	pctx := h.engine.GetPersonalizationContext(r.Context(), userID, occasion)
	utils.RespondWithData(w, http.StatusOK, pctx)
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var dto LikeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.OnLike(r.Context(), userID, dto.Outfit.toSnapshot(), dto.Exploratory); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Couldn't save your preference")
		return
	}
	utils.MessageResponse(w, "Preference recorded", http.StatusAccepted)
}

func (h *Handler) Wear(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var dto WearRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.OnWear(r.Context(), userID, dto.Outfit.toSnapshot(), dto.Exploratory); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Couldn't save your preference")
		return
	}
	utils.MessageResponse(w, "Preference recorded", http.StatusAccepted)
}

func (h *Handler) IgnoreSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var dto IgnoreSessionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	outfits := make([]OutfitSnapshot, 0, len(dto.Outfits))
	for _, o := range dto.Outfits {
		outfits = append(outfits, *o.toSnapshot())
	}

	if err := h.engine.OnIgnoreSession(r.Context(), userID, outfits); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Couldn't save your preference")
		return
	}
	utils.MessageResponse(w, "Session recorded", http.StatusAccepted)
}

func (h *Handler) ShoppingClick(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var dto ShoppingClickRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var outfit *OutfitSnapshot
	if dto.Outfit != nil {
		outfit = dto.Outfit.toSnapshot()
	}

	if err := h.engine.OnShoppingClick(r.Context(), userID, dto.Platform, outfit); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Couldn't save your preference")
		return
	}
	utils.MessageResponse(w, "Click recorded", http.StatusAccepted)
}

func (h *Handler) GetBlocklists(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	utils.RespondWithData(w, http.StatusOK, h.engine.Blocklists().Get(r.Context(), userID))
}

func (h *Handler) AddHardBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var dto HardBlockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	reason := dto.Reason
	if reason == "" {
		reason = "User blocked"
	}
	if err := h.engine.Blocklists().AddHard(r.Context(), userID, dto.Dimension, dto.Value, reason); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update blocklist")
		return
	}
	utils.MessageResponse(w, "Blocked", http.StatusCreated)
}

func (h *Handler) RemoveHardBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	dimension := r.URL.Query().Get("dimension")
	value := r.URL.Query().Get("value")
	if dimension == "" || value == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "dimension and value are required")
		return
	}

	if err := h.engine.Blocklists().RemoveHard(r.Context(), userID, dimension, value); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update blocklist")
		return
	}
	utils.MessageResponse(w, "Unblocked", http.StatusOK)
}

// PromoteSoftBlocks runs the soft-to-hard promotion sweep on demand,
// ahead of the nightly maintenance pass.
func (h *Handler) PromoteSoftBlocks(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.engine.Blocklists().PromoteSoftToHard(r.Context(), userID); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update blocklist")
		return
	}
	utils.RespondWithData(w, http.StatusOK, h.engine.Blocklists().Get(r.Context(), userID))
}

func (h *Handler) GetExploration(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	metrics := h.engine.Exploration().GetMetrics(r.Context(), userID)
	lock := h.engine.PatternLock(r.Context(), userID)
	utils.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"metrics":      metrics,
		"pattern_lock": lock,
	})
}
