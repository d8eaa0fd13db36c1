package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/carelink/pkg/httputil"
	"github.com/platinummonkey/carelink/pkg/middleware"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/rbac"
	"github.com/platinummonkey/carelink/pkg/records"
)

// RecordHandlers handles patients, doctors and mappings
type RecordHandlers struct {
	records *records.Service
}

// NewRecordHandlers creates record handlers
func NewRecordHandlers(records *records.Service) *RecordHandlers {
	return &RecordHandlers{records: records}
}

// RegisterRoutes registers record routes with their capability gates
func (h *RecordHandlers) RegisterRoutes(router *mux.Router, gates *rbac.Middleware) {
	// Patient routes
	router.Handle("/patients", gated(gates, models.CapManagePatients, h.createPatient)).Methods(http.MethodPost)
	router.HandleFunc("/patients", h.listPatients).Methods(http.MethodGet)
	router.HandleFunc("/patients/{id}", h.getPatient).Methods(http.MethodGet)
	router.Handle("/patients/{id}", gated(gates, models.CapManagePatients, h.updatePatient)).Methods(http.MethodPut)
	router.Handle("/patients/{id}", gated(gates, models.CapManagePatients, h.deletePatient)).Methods(http.MethodDelete)

	// Doctor routes
	router.Handle("/doctors", gated(gates, models.CapManageDoctors, h.createDoctor)).Methods(http.MethodPost)
	router.HandleFunc("/doctors", h.listDoctors).Methods(http.MethodGet)
	router.HandleFunc("/doctors/{id}", h.getDoctor).Methods(http.MethodGet)
	router.Handle("/doctors/{id}", gated(gates, models.CapManageDoctors, h.updateDoctor)).Methods(http.MethodPut)
	router.Handle("/doctors/{id}", gated(gates, models.CapManageDoctors, h.deleteDoctor)).Methods(http.MethodDelete)

	// Mapping routes
	router.Handle("/mappings", gated(gates, models.CapCreateMappings, h.createMapping)).Methods(http.MethodPost)
	router.Handle("/mappings", gated(gates, models.CapViewMappings, h.listMappings)).Methods(http.MethodGet)
	router.Handle("/mappings/{patientId}", gated(gates, models.CapViewMappings, h.doctorsForPatient)).Methods(http.MethodGet)
	router.Handle("/mappings/{id}", gated(gates, models.CapCreateMappings, h.updateMapping)).Methods(http.MethodPut)
	router.Handle("/mappings/{id}", gated(gates, models.CapCreateMappings, h.deleteMapping)).Methods(http.MethodDelete)
}

// --- patients ---

func (h *RecordHandlers) createPatient(w http.ResponseWriter, r *http.Request) {
	var req records.PatientInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	patient, err := h.records.CreatePatient(r.Context(), middleware.GetPrincipal(r), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, patient)
}

func (h *RecordHandlers) listPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.records.ListPatients(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, patients)
}

func (h *RecordHandlers) getPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	patient, err := h.records.GetPatient(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, patient)
}

func (h *RecordHandlers) updatePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req records.PatientInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	patient, err := h.records.UpdatePatient(r.Context(), middleware.GetPrincipal(r), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, patient)
}

func (h *RecordHandlers) deletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.records.DeletePatient(r.Context(), middleware.GetPrincipal(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Patient deleted successfully")
}

// --- doctors ---

func (h *RecordHandlers) createDoctor(w http.ResponseWriter, r *http.Request) {
	var req records.DoctorInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	doctor, err := h.records.CreateDoctor(r.Context(), middleware.GetPrincipal(r), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, doctor)
}

func (h *RecordHandlers) listDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.records.ListDoctors(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doctors)
}

func (h *RecordHandlers) getDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	doctor, err := h.records.GetDoctor(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doctor)
}

func (h *RecordHandlers) updateDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req records.DoctorInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	doctor, err := h.records.UpdateDoctor(r.Context(), middleware.GetPrincipal(r), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doctor)
}

func (h *RecordHandlers) deleteDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.records.DeleteDoctor(r.Context(), middleware.GetPrincipal(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Doctor deleted successfully")
}

// --- mappings ---

func (h *RecordHandlers) createMapping(w http.ResponseWriter, r *http.Request) {
	var req records.MappingInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	mapping, err := h.records.CreateMapping(r.Context(), middleware.GetPrincipal(r), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, mapping)
}

func (h *RecordHandlers) listMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.records.ListMappings(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, mappings)
}

func (h *RecordHandlers) doctorsForPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "patientId")
	if !ok {
		return
	}

	doctors, err := h.records.DoctorsForPatient(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doctors)
}

func (h *RecordHandlers) updateMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req records.MappingInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	mapping, err := h.records.UpdateMapping(r.Context(), middleware.GetPrincipal(r), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, mapping)
}

func (h *RecordHandlers) deleteMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.records.DeleteMapping(r.Context(), middleware.GetPrincipal(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Mapping deleted successfully")
}
