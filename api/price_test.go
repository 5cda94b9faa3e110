package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	mockdb "github.com/marc-henrard/murisq-ir-models/db/mock"
	db "github.com/marc-henrard/murisq-ir-models/db/sqlc"
)

func storedParameters() db.ParameterSet {
	return db.ParameterSet{
		ID:            1,
		Date:          time.Now().Format(dateLayout),
		ModelID:       defaultModelID,
		MeanReversion: 0.02,
		Times:         nil,
		Vols:          []float64{0.01},
	}
}

func postJSON(t *testing.T, server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	request, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	require.NoError(t, err)
	setBearer(request, testAPIKey)
	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, request)
	return recorder
}

func getJSON(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	request, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	setBearer(request, testAPIKey)
	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, request)
	return recorder
}

func authOK(t *testing.T, store *mockdb.MockStore) {
	t.Helper()
	store.EXPECT().GetUser(gomock.Any(), gomock.Eq(testPrefix)).
		AnyTimes().Return(testUser(t, time.Now().Add(24*time.Hour)), nil)
}

func TestPriceCMSEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().GetLatestParameterSet(gomock.Any(), gomock.Eq(defaultModelID)).
		Times(1).Return(storedParameters(), nil)

	server := NewServer(store)
	fixing := time.Now().AddDate(5, 0, 0)
	recorder := postJSON(t, server, "/v1/cms/price", gin.H{
		"payoff":        "caplet",
		"notional":      1000000.0,
		"year_fraction": 0.25,
		"strike":        0.02,
		"fixing_date":   fixing.Format(dateLayout),
		"pay_date":      fixing.AddDate(0, 3, 0).Format(dateLayout),
		"tenor_years":   10,
		"index":         "EUR-EURIBOR-3M",
		"flat_rate":     0.02,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Price struct {
			Currency string  `json:"currency"`
			Value    float64 `json:"value"`
		} `json:"price"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Equal(t, "EUR", resp.Price.Currency)
	require.Greater(t, resp.Price.Value, 0.0)
}

func TestPriceCMSRejectsBadPayoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().GetLatestParameterSet(gomock.Any(), gomock.Any()).Times(0)

	server := NewServer(store)
	recorder := postJSON(t, server, "/v1/cms/price", gin.H{
		"payoff":        "digital",
		"notional":      1000000.0,
		"year_fraction": 0.25,
		"fixing_date":   "2031-01-15",
		"pay_date":      "2031-04-15",
		"tenor_years":   10,
		"index":         "EUR-EURIBOR-3M",
		"flat_rate":     0.02,
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestPriceSwaptionEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().GetLatestParameterSet(gomock.Any(), gomock.Eq(defaultModelID)).
		Times(1).Return(storedParameters(), nil)

	server := NewServer(store)
	recorder := postJSON(t, server, "/v1/swaption/price", gin.H{
		"expiry_date": time.Now().AddDate(3, 0, 0).Format(dateLayout),
		"tenor_years": 7,
		"coupon":      0.022,
		"receiver":    true,
		"notional":    100.0,
		"index":       "EUR-EURIBOR-6M",
		"flat_rate":   0.02,
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Price struct {
			Value float64 `json:"value"`
		} `json:"price"`
		ImpliedVol float64 `json:"implied_vol"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Greater(t, resp.Price.Value, 0.0)
	require.Greater(t, resp.ImpliedVol, 0.0)
}

func TestPriceCMSAcceptsZeroFlatRate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().GetLatestParameterSet(gomock.Any(), gomock.Eq(defaultModelID)).
		Times(1).Return(storedParameters(), nil)

	server := NewServer(store)
	fixing := time.Now().AddDate(5, 0, 0)
	recorder := postJSON(t, server, "/v1/cms/price", gin.H{
		"payoff":        "coupon",
		"notional":      1000000.0,
		"year_fraction": 0.25,
		"fixing_date":   fixing.Format(dateLayout),
		"pay_date":      fixing.AddDate(0, 3, 0).Format(dateLayout),
		"tenor_years":   10,
		"index":         "EUR-EURIBOR-3M",
		"flat_rate":     0.0,
	})
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestPriceSwaptionWithPillarCurve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().GetLatestParameterSet(gomock.Any(), gomock.Eq(defaultModelID)).
		Times(1).Return(storedParameters(), nil)

	server := NewServer(store)
	recorder := postJSON(t, server, "/v1/swaption/price", gin.H{
		"expiry_date": time.Now().AddDate(3, 0, 0).Format(dateLayout),
		"tenor_years": 7,
		"coupon":      0.022,
		"receiver":    true,
		"notional":    100.0,
		"index":       "EUR-EURIBOR-6M",
		"curve": gin.H{
			"times": []float64{1, 5, 10, 20},
			"dfs":   []float64{0.98, 0.90, 0.80, 0.65},
		},
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Price struct {
			Value float64 `json:"value"`
		} `json:"price"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Greater(t, resp.Price.Value, 0.0)
}

func TestPriceSwaptionRejectsBadPillarCurve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().GetLatestParameterSet(gomock.Any(), gomock.Eq(defaultModelID)).
		Times(1).Return(storedParameters(), nil)

	server := NewServer(store)
	recorder := postJSON(t, server, "/v1/swaption/price", gin.H{
		"expiry_date": time.Now().AddDate(3, 0, 0).Format(dateLayout),
		"tenor_years": 7,
		"coupon":      0.022,
		"receiver":    true,
		"notional":    100.0,
		"index":       "EUR-EURIBOR-6M",
		"curve": gin.H{
			"times": []float64{5, 1},
			"dfs":   []float64{0.90, 0.98},
		},
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetParametersByDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	stored := storedParameters()
	store.EXPECT().GetParameterSet(gomock.Any(), gomock.Eq(defaultModelID), gomock.Eq(stored.Date)).
		Times(1).Return(stored, nil)

	server := NewServer(store)
	recorder := getJSON(t, server, "/v1/parameters?date="+stored.Date)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Parameters db.ParameterSet `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Equal(t, stored.ModelID, resp.Parameters.ModelID)
	require.Equal(t, stored.Vols, resp.Parameters.Vols)
}

func TestGetParametersLatestNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().GetLatestParameterSet(gomock.Any(), gomock.Eq("g2pp")).
		Times(1).Return(db.ParameterSet{}, sql.ErrNoRows)

	server := NewServer(store)
	recorder := getJSON(t, server, "/v1/parameters?model_id=g2pp")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetParametersRejectsBadDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().GetParameterSet(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	server := NewServer(store)
	recorder := getJSON(t, server, "/v1/parameters?date=15-01-2024")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCalibrateEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().SaveParameterSet(gomock.Any(), gomock.Any()).
		Times(1).DoAndReturn(func(_ context.Context, arg db.SaveParameterSetParams) (db.ParameterSet, error) {
		require.Equal(t, defaultModelID, arg.ModelID)
		require.Len(t, arg.Vols, 2)
		require.Len(t, arg.Times, 1)
		return db.ParameterSet{
			ID:            7,
			Date:          arg.Date,
			ModelID:       arg.ModelID,
			MeanReversion: arg.MeanReversion,
			Times:         arg.Times,
			Vols:          arg.Vols,
		}, nil
	})

	server := NewServer(store)
	recorder := postJSON(t, server, "/v1/calibrate", gin.H{
		"mode":           "term",
		"mean_reversion": 0.02,
		"index":          "EUR-EURIBOR-6M",
		"flat_rate":      0.02,
		"instruments": []gin.H{
			{"expiry_date": time.Now().AddDate(2, 0, 0).Format(dateLayout), "tenor_years": 5, "target_vol": 0.006},
			{"expiry_date": time.Now().AddDate(5, 0, 0).Format(dateLayout), "tenor_years": 5, "target_vol": 0.0055},
		},
	})
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestCalibrateRejectsUnorderedInstruments(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockdb.NewMockStore(ctrl)
	authOK(t, store)
	store.EXPECT().SaveParameterSet(gomock.Any(), gomock.Any()).Times(0)

	server := NewServer(store)
	recorder := postJSON(t, server, "/v1/calibrate", gin.H{
		"mode":           "level",
		"mean_reversion": 0.02,
		"index":          "EUR-EURIBOR-6M",
		"flat_rate":      0.02,
		"instruments": []gin.H{
			{"expiry_date": time.Now().AddDate(5, 0, 0).Format(dateLayout), "tenor_years": 5, "target_vol": 0.006},
			{"expiry_date": time.Now().AddDate(2, 0, 0).Format(dateLayout), "tenor_years": 5, "target_vol": 0.006},
		},
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
