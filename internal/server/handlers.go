package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dvwtools/dvw-cli/api/schemas"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler serves the model and settings endpoints against a gorm database.
type Handler struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			h.Log.Warn("failed to encode response", zap.Error(err))
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"detail": msg})
}

// ListModels handles GET /api/models/.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	var models []DataModel
	if err := h.DB.Preload("Nodes").Preload("Edges").Order("created_at").Find(&models).Error; err != nil {
		h.Log.Error("failed to list models", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list models")
		return
	}
	out := make([]schemas.APIModel, len(models))
	for i, m := range models {
		out[i] = m.toAPI()
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetModel handles GET /api/models/{id}/.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	var model DataModel
	err := h.DB.Preload("Nodes").Preload("Edges").First(&model, "id = ?", r.PathValue("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.writeError(w, http.StatusNotFound, "model not found")
		return
	}
	if err != nil {
		h.Log.Error("failed to fetch model", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to fetch model")
		return
	}
	h.writeJSON(w, http.StatusOK, model.toAPI())
}

// CreateModel handles POST /api/models/.
func (h *Handler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req schemas.CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	model := DataModel{ID: uuid.New().String(), Name: req.Name}
	var convErr error
	for _, n := range req.Nodes {
		rec, err := nodeRecordFrom(model.ID, n)
		if err != nil {
			convErr = err
			break
		}
		model.Nodes = append(model.Nodes, rec)
	}
	for _, e := range req.Edges {
		if convErr != nil {
			break
		}
		rec, err := edgeRecordFrom(model.ID, e)
		if err != nil {
			convErr = err
			break
		}
		model.Edges = append(model.Edges, rec)
	}
	if convErr != nil {
		h.writeError(w, http.StatusBadRequest, "invalid node or edge payload")
		return
	}

	if err := h.DB.Create(&model).Error; err != nil {
		h.Log.Error("failed to create model", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to create model")
		return
	}
	h.writeJSON(w, http.StatusCreated, model.toAPI())
}

// UpdateModel handles PUT /api/models/{id}/. Nodes and edges, when present,
// replace the stored sets wholesale inside one transaction.
func (h *Handler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req schemas.CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var model DataModel
	err := h.DB.First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.writeError(w, http.StatusNotFound, "model not found")
		return
	}
	if err != nil {
		h.Log.Error("failed to fetch model", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to fetch model")
		return
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if req.Name != "" {
			if err := tx.Model(&DataModel{}).Where("id = ?", id).Update("name", req.Name).Error; err != nil {
				return err
			}
		}
		if req.Nodes != nil {
			if err := tx.Where("model_id = ?", id).Delete(&NodeRecord{}).Error; err != nil {
				return err
			}
			for _, n := range req.Nodes {
				rec, err := nodeRecordFrom(id, n)
				if err != nil {
					return err
				}
				if err := tx.Create(&rec).Error; err != nil {
					return err
				}
			}
		}
		if req.Edges != nil {
			if err := tx.Where("model_id = ?", id).Delete(&EdgeRecord{}).Error; err != nil {
				return err
			}
			for _, e := range req.Edges {
				rec, err := edgeRecordFrom(id, e)
				if err != nil {
					return err
				}
				if err := tx.Create(&rec).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		h.Log.Error("failed to update model", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to update model")
		return
	}

	var updated DataModel
	if err := h.DB.Preload("Nodes").Preload("Edges").First(&updated, "id = ?", id).Error; err != nil {
		h.Log.Error("failed to reload model", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to reload model")
		return
	}
	h.writeJSON(w, http.StatusOK, updated.toAPI())
}

// DeleteModel handles DELETE /api/models/{id}/.
func (h *Handler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("model_id = ?", id).Delete(&NodeRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("model_id = ?", id).Delete(&EdgeRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&DataModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.writeError(w, http.StatusNotFound, "model not found")
		return
	}
	if err != nil {
		h.Log.Error("failed to delete model", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to delete model")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadSettings() (schemas.Settings, error) {
	var rec SettingsRecord
	err := h.DB.First(&rec, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schemas.DefaultSettings(), nil
	}
	if err != nil {
		return schemas.Settings{}, err
	}
	settings := schemas.DefaultSettings()
	if err := json.Unmarshal([]byte(rec.Data), &settings); err != nil {
		return schemas.Settings{}, err
	}
	return settings, nil
}

func (h *Handler) storeSettings(s schemas.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	rec := SettingsRecord{ID: 1, Data: string(data)}
	return h.DB.Save(&rec).Error
}

// GetSettings handles GET /api/settings/.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.loadSettings()
	if err != nil {
		h.Log.Error("failed to load settings", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

// PatchSettings handles PATCH /api/settings/.
func (h *Handler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch schemas.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	current, err := h.loadSettings()
	if err != nil {
		h.Log.Error("failed to load settings", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	updated := patch.Apply(current)
	if err := h.storeSettings(updated); err != nil {
		h.Log.Error("failed to store settings", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to store settings")
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// ResetSettings handles POST /api/settings/reset/.
func (h *Handler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	defaults := schemas.DefaultSettings()
	if err := h.storeSettings(defaults); err != nil {
		h.Log.Error("failed to reset settings", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to reset settings")
		return
	}
	h.writeJSON(w, http.StatusOK, defaults)
}
