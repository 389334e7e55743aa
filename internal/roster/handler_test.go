package roster

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newRosterTestRouter(t *testing.T, repo *fakeRepo) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, fixedClockService(repo))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func postInstallment(router chi.Router, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOverviewEndpoint(t *testing.T) {
	repo := newFakeRepo()
	repo.employees = []Employee{
		{ID: 1, Code: "1001", Name: "ANA SILVA", Title: "Vendedor", Active: true, Periods: []AcquisitionPeriod{
			{ID: 10, EmployeeID: 1, StartsOn: date(2024, time.September, 1), EndsOn: date(2025, time.August, 31),
				EntitledDays: decimal.NewFromInt(30), RemainingDays: decimal.NewFromInt(30)},
		}},
	}
	router := newRosterTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/overview?search=ana", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var data OverviewData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	require.Equal(t, 1, data.Total)
	require.Equal(t, "ana", data.Search)
	require.Len(t, data.Employees, 1)
	require.Equal(t, "OK", data.Employees[0].Periods[0].StatusLabel)
	require.True(t, decimal.NewFromInt(30).Equal(data.Employees[0].Periods[0].EntitledDays))
}

func TestOverviewEndpointFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("connection refused")
	router := newRosterTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/overview", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Não foi possível carregar o painel.")
}

func TestAddInstallmentEndpoint(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	router := newRosterTestRouter(t, repo)

	rec := postInstallment(router, "/periods/10/installments",
		`{"month":"2025-07","days":"10","note":"praia"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var view PeriodView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, int64(10), view.PeriodID)
	require.Len(t, view.Installments, 1)
	require.True(t, decimal.NewFromInt(10).Equal(view.DaysUsed))
	require.Equal(t, StatusOK, view.Status)

	// The raw payload carries the display month for the client.
	require.Contains(t, rec.Body.String(), `"month_display":"Jul/2025"`)
}

func TestAddInstallmentEndpointCapacityPayload(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	used := decimal.NewFromInt(15)
	repo.addInstallment(10, &used)
	router := newRosterTestRouter(t, repo)

	rec := postInstallment(router, "/periods/10/installments", `{"month":"2025-07","days":"10"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Error         string `json:"error"`
		Message       string `json:"message"`
		EntitledDays  string `json:"entitled_days"`
		DaysUsed      string `json:"days_used"`
		DaysAvailable string `json:"days_available"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "capacity_exceeded", resp.Error)
	require.Equal(t, "Limite excedido. Disponível: 5d de 20d (15d já usados).", resp.Message)
	require.Equal(t, "20.0", resp.EntitledDays)
	require.Equal(t, "15.0", resp.DaysUsed)
	require.Equal(t, "5.0", resp.DaysAvailable)
}

func TestAddInstallmentEndpointInvalidMonth(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	router := newRosterTestRouter(t, repo)

	rec := postInstallment(router, "/periods/10/installments", `{"month":"2025-13"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `"invalid_month"`)
	require.Contains(t, rec.Body.String(), "Mês inválido. Use o formato YYYY-MM.")
}

func TestAddInstallmentEndpointInvalidDays(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	router := newRosterTestRouter(t, repo)

	rec := postInstallment(router, "/periods/10/installments", `{"month":"2025-07","days":"-2"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), `"invalid_days"`)
	require.Contains(t, rec.Body.String(), "Dias inválido.")
}

func TestAddInstallmentEndpointRequiresMonth(t *testing.T) {
	router := newRosterTestRouter(t, newFakeRepo())

	rec := postInstallment(router, "/periods/10/installments", `{"days":"5"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Informe o mês da parcela.")
}

func TestAddInstallmentEndpointBadJSON(t *testing.T) {
	router := newRosterTestRouter(t, newFakeRepo())

	rec := postInstallment(router, "/periods/10/installments", `{`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Corpo JSON inválido.")
}

func TestAddInstallmentEndpointBadPeriodParam(t *testing.T) {
	router := newRosterTestRouter(t, newFakeRepo())

	rec := postInstallment(router, "/periods/xyz/installments", `{"month":"2025-07"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Período inválido.")
}

func TestAddInstallmentEndpointUnknownPeriod(t *testing.T) {
	router := newRosterTestRouter(t, newFakeRepo())

	rec := postInstallment(router, "/periods/999/installments", `{"month":"2025-07"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Período não encontrado.")
}

func TestRemoveInstallmentEndpoint(t *testing.T) {
	repo := newFakeRepo()
	repo.addPeriod(10, decimal.NewFromInt(20))
	ten := decimal.NewFromInt(10)
	inst := repo.addInstallment(10, &ten)
	router := newRosterTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodDelete, "/installments/"+strconv.FormatInt(inst.ID, 10), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var view PeriodView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, int64(10), view.PeriodID)
	require.Empty(t, view.Installments)
	require.True(t, view.DaysUsed.IsZero())
}

func TestRemoveInstallmentEndpointUnknown(t *testing.T) {
	router := newRosterTestRouter(t, newFakeRepo())

	req := httptest.NewRequest(http.MethodDelete, "/installments/404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Parcela não encontrada.")
}

func TestRemoveInstallmentEndpointBadParam(t *testing.T) {
	router := newRosterTestRouter(t, newFakeRepo())

	req := httptest.NewRequest(http.MethodDelete, "/installments/um", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Parcela inválida.")
}
