package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/comparator"
	"github.com/reviewpulse/reviewpulse/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createProductRequest struct {
	ProductName string         `json:"product_name"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductName == "" {
		respondError(w, http.StatusBadRequest, "product_name is required")
		return
	}

	product, err := s.store.CreateProduct(r.Context(), req.ProductName, req.Metadata)
	if err != nil {
		zap.L().Error("create product failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		zap.L().Error("list products failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

// productDetailResponse is the product plus its analysis when one exists.
type productDetailResponse struct {
	model.Product
	Analysis     *model.AnalysisResult `json:"analysis,omitempty"`
	ReviewsCount *int                  `json:"reviews_count,omitempty"`
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := s.store.GetProduct(r.Context(), productID)
	if err != nil {
		zap.L().Error("get product failed", zap.String("product_id", productID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	resp := productDetailResponse{Product: *product}

	analysis, err := s.store.GetAnalysis(r.Context(), productID)
	if err != nil {
		zap.L().Error("get analysis failed", zap.String("product_id", productID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get analysis")
		return
	}
	if analysis != nil {
		count, err := s.store.CountRawReviews(r.Context(), productID)
		if err != nil {
			zap.L().Error("count reviews failed", zap.String("product_id", productID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to count reviews")
			return
		}
		resp.Analysis = analysis
		resp.ReviewsCount = &count
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyzeProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := s.store.GetProduct(r.Context(), productID)
	if err != nil {
		zap.L().Error("get product failed", zap.String("product_id", productID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	started, err := s.runner.Start(r.Context(), productID, product.ProductName)
	if err != nil {
		zap.L().Error("start analysis failed", zap.String("product_id", productID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to start analysis")
		return
	}
	if started {
		respondJSON(w, http.StatusAccepted, map[string]string{
			"product_id": productID,
			"status":     string(model.ProductStatusProcessing),
			"message":    "Analysis started",
		})
		return
	}

	// Claim lost: report the state that blocked it.
	current, err := s.store.GetProduct(r.Context(), productID)
	if err != nil || current == nil {
		respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	message := "Analysis already in progress"
	if current.Status == model.ProductStatusCompleted {
		message = "Analysis already completed"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"product_id": productID,
		"status":     string(current.Status),
		"message":    message,
	})
}

func (s *Server) handleProductStatus(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := s.store.GetProduct(r.Context(), productID)
	if err != nil {
		zap.L().Error("get product failed", zap.String("product_id", productID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	latest, err := s.store.GetLatestProgress(r.Context(), productID)
	if err != nil {
		zap.L().Error("get progress failed", zap.String("product_id", productID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get progress")
		return
	}
	if latest == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"product_id":   productID,
			"stage":        model.StageSearch,
			"status":       string(model.ProductStatusPending),
			"progress":     0,
			"current_step": "Waiting to start",
		})
		return
	}
	respondJSON(w, http.StatusOK, latest)
}

type compareRequest struct {
	ProductIDs []string `json:"product_ids"`
}

// comparisonResponse presents a comparison with null matrix cells coerced
// to 0.0.
type comparisonResponse struct {
	model.Comparison
	ComparisonMatrix map[string]map[string]float64 `json:"comparison_matrix,omitempty"`
}

func newComparisonResponse(c *model.Comparison) comparisonResponse {
	return comparisonResponse{Comparison: *c, ComparisonMatrix: c.CleanMatrix()}
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ProductIDs) < comparator.MinProducts || len(req.ProductIDs) > comparator.MaxProducts {
		respondError(w, http.StatusBadRequest, "compare requires between 2 and 4 product ids")
		return
	}

	products := make([]model.ProductAnalysis, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		product, err := s.store.GetProduct(r.Context(), id)
		if err != nil {
			zap.L().Error("get product failed", zap.String("product_id", id), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to get product")
			return
		}
		if product == nil {
			respondError(w, http.StatusNotFound, "product not found: "+id)
			return
		}
		analysis, err := s.store.GetAnalysis(r.Context(), id)
		if err != nil {
			zap.L().Error("get analysis failed", zap.String("product_id", id), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to get analysis")
			return
		}
		if analysis == nil {
			respondError(w, http.StatusBadRequest, "product has no completed analysis: "+id)
			return
		}
		products = append(products, model.ProductAnalysis{
			ProductID:   product.ProductID,
			ProductName: product.ProductName,
			Analysis:    analysis,
		})
	}

	payload, err := s.comparator.Compare(r.Context(), products)
	if err != nil {
		zap.L().Error("comparison failed", zap.Strings("product_ids", req.ProductIDs), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "comparison failed")
		return
	}

	comparison, err := s.store.SaveComparison(r.Context(), payload)
	if err != nil {
		zap.L().Error("save comparison failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save comparison")
		return
	}

	respondJSON(w, http.StatusOK, newComparisonResponse(comparison))
}

func (s *Server) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	comparisonID := chi.URLParam(r, "comparisonID")

	comparison, err := s.store.GetComparison(r.Context(), comparisonID)
	if err != nil {
		zap.L().Error("get comparison failed", zap.String("comparison_id", comparisonID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to get comparison")
		return
	}
	if comparison == nil {
		respondError(w, http.StatusNotFound, "comparison not found")
		return
	}
	respondJSON(w, http.StatusOK, newComparisonResponse(comparison))
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("encode response failed", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
