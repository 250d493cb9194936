package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/expirycare/expirycare/internal/models"
	"github.com/expirycare/expirycare/internal/services"
	"github.com/expirycare/expirycare/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemHandler handles HTTP requests related to life items.
type ItemHandler struct {
	Service *services.ItemService
}

// NewItemHandler creates a new instance of ItemHandler.
func NewItemHandler(service *services.ItemService) *ItemHandler {
	return &ItemHandler{
		Service: service,
	}
}

// CreateItemHandler handles the creation of a new item.
func (h *ItemHandler) CreateItemHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		logrus.Warn("Unauthorized access attempt during item creation")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var item models.LifeItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		logrus.WithError(err).Warn("Invalid request payload during item creation")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		logrus.WithError(err).Error("Failed to convert user ID")
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	createdItem, err := h.Service.CreateItem(r.Context(), userID, &item)
	if err != nil {
		logrus.WithError(err).Warn("Failed to create item")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID": claims.UserID,
		"itemID": createdItem.ID.Hex(),
	}).Info("Item successfully created")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(createdItem)
}

// GetItemHandler handles fetching a single item by its ID.
func (h *ItemHandler) GetItemHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	itemID := vars["id"]

	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		logrus.Warn("Unauthorized item fetch attempt")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	item, err := h.Service.GetItem(r.Context(), itemID)
	if err != nil || item == nil {
		logrus.WithField("itemID", itemID).Warn("Item not found")
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	if item.UserID.Hex() != claims.UserID {
		logrus.WithFields(logrus.Fields{
			"userID": claims.UserID,
			"itemID": itemID,
		}).Warn("Forbidden: User tried to access item without permission")
		http.Error(w, "Forbidden: You can only view your own items", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// GetItemsHandler handles listing the user's items, optionally filtered
// by category.
func (h *ItemHandler) GetItemsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	category := r.URL.Query().Get("category")
	items, err := h.Service.GetItems(r.Context(), userID, category)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch items")
		http.Error(w, "Failed to fetch items", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// GetSummaryHandler buckets the user's items into expired, expiring soon
// and active as of today. A malformed record degrades into the expired
// bucket instead of failing the view.
func (h *ItemHandler) GetSummaryHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	summary, err := h.Service.Summarize(r.Context(), userID, time.Now())
	if err != nil {
		logrus.WithError(err).Error("Failed to build item summary")
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// UpdateItemHandler handles updating an existing item.
func (h *ItemHandler) UpdateItemHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	itemID := vars["id"]

	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		logrus.Warn("Unauthorized update attempt")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	existing, err := h.Service.GetItem(r.Context(), itemID)
	if err != nil || existing == nil {
		logrus.WithField("itemID", itemID).Warn("Item not found during update")
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	if existing.UserID.Hex() != claims.UserID {
		logrus.WithFields(logrus.Fields{
			"userID": claims.UserID,
			"itemID": itemID,
		}).Warn("Forbidden: Update attempt by non-owner")
		http.Error(w, "Forbidden: You can only update your own items", http.StatusForbidden)
		return
	}

	var updated models.LifeItem
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		logrus.WithError(err).Warn("Invalid update payload")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	updatedItem, err := h.Service.UpdateItem(r.Context(), itemID, &updated)
	if err != nil {
		logrus.WithError(err).Warn("Failed to update item")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID": claims.UserID,
		"itemID": itemID,
	}).Info("Item successfully updated")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updatedItem)
}

// DeleteItemHandler handles deleting an item by its ID.
func (h *ItemHandler) DeleteItemHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	itemID := vars["id"]
	log := logrus.WithField("itemID", itemID)

	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		log.Warn("Unauthorized access attempt")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	item, err := h.Service.GetItem(r.Context(), itemID)
	if err != nil || item == nil {
		log.WithError(err).Warn("Item not found or fetch failed")
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	if item.UserID.Hex() != claims.UserID {
		log.Warn("Forbidden: User is not the owner")
		http.Error(w, "Forbidden: You can only delete your own items", http.StatusForbidden)
		return
	}

	if err := h.Service.DeleteItem(r.Context(), itemID); err != nil {
		log.WithError(err).Error("Failed to delete item")
		http.Error(w, "Failed to delete item", http.StatusInternalServerError)
		return
	}

	log.Info("Item successfully deleted")
	w.WriteHeader(http.StatusNoContent)
}
