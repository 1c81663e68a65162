package httpapi

import "net/http"

type updateRequest struct {
	Values []float64 `json:"values"`
}

type quantilesRequest struct {
	Ranks     []float64 `json:"ranks"`
	Inclusive bool      `json:"inclusive"`
}

type ranksRequest struct {
	Values    []float64 `json:"values"`
	Inclusive bool      `json:"inclusive"`
}

type distributionRequest struct {
	SplitPoints []float64 `json:"split_points"`
	Inclusive   bool      `json:"inclusive"`
}

type boundsRequest struct {
	Rank      float64 `json:"rank"`
	NumStdDev int     `json:"num_std_dev"`
}

type countResponse struct {
	Name string `json:"name"`
	N    uint64 `json:"n"`
}

type listResponse struct {
	Sketches []string `json:"sketches"`
}

type quantilesResponse struct {
	Ranks     []float64 `json:"ranks"`
	Quantiles []float64 `json:"quantiles"`
}

type ranksResponse struct {
	Values []float64 `json:"values"`
	Ranks  []float64 `json:"ranks"`
}

type pmfResponse struct {
	SplitPoints []float64 `json:"split_points"`
	PMF         []float64 `json:"pmf"`
}

type cdfResponse struct {
	SplitPoints []float64 `json:"split_points"`
	CDF         []float64 `json:"cdf"`
}

type flushResponse struct {
	Flushed int `json:"flushed"`
}

func (s *Server) handleList(rw http.ResponseWriter, hr *http.Request) {
	names := s.reg.Names()
	if names == nil {
		names = []string{}
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, listResponse{Sketches: names})
}

func (s *Server) handleSummary(rw http.ResponseWriter, hr *http.Request) {
	summary, err := s.reg.Summary(hr.PathValue("name"))
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, summary)
}

func (s *Server) handleDelete(rw http.ResponseWriter, hr *http.Request) {
	err := s.reg.Delete(hr.Context(), hr.PathValue("name"))
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdate(rw http.ResponseWriter, hr *http.Request) {
	var body updateRequest

	err := s.decode(rw, hr, schemaUpdate, &body)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	name := hr.PathValue("name")

	n, err := s.reg.Update(hr.Context(), name, body.Values)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, countResponse{Name: name, N: n})
}

func (s *Server) handleQuantiles(rw http.ResponseWriter, hr *http.Request) {
	var body quantilesRequest

	err := s.decode(rw, hr, schemaQuantiles, &body)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	qs, err := s.reg.Quantiles(hr.PathValue("name"), body.Ranks, body.Inclusive)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, quantilesResponse{Ranks: body.Ranks, Quantiles: qs})
}

func (s *Server) handleRanks(rw http.ResponseWriter, hr *http.Request) {
	var body ranksRequest

	err := s.decode(rw, hr, schemaRanks, &body)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	ranks, err := s.reg.Ranks(hr.PathValue("name"), body.Values, body.Inclusive)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, ranksResponse{Values: body.Values, Ranks: ranks})
}

func (s *Server) handlePMF(rw http.ResponseWriter, hr *http.Request) {
	var body distributionRequest

	err := s.decode(rw, hr, schemaDistribution, &body)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	pmf, err := s.reg.PMF(hr.PathValue("name"), body.SplitPoints, body.Inclusive)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, pmfResponse{SplitPoints: body.SplitPoints, PMF: pmf})
}

func (s *Server) handleCDF(rw http.ResponseWriter, hr *http.Request) {
	var body distributionRequest

	err := s.decode(rw, hr, schemaDistribution, &body)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	cdf, err := s.reg.CDF(hr.PathValue("name"), body.SplitPoints, body.Inclusive)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, cdfResponse{SplitPoints: body.SplitPoints, CDF: cdf})
}

func (s *Server) handleBounds(rw http.ResponseWriter, hr *http.Request) {
	body := boundsRequest{NumStdDev: defaultNumStdDev}

	err := s.decode(rw, hr, schemaBounds, &body)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	bounds, err := s.reg.Bounds(hr.PathValue("name"), body.Rank, body.NumStdDev)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, bounds)
}

func (s *Server) handleSnapshot(rw http.ResponseWriter, hr *http.Request) {
	data, err := s.reg.Snapshot(hr.Context(), hr.PathValue("name"))
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	rw.Header().Set("Content-Type", contentTypeBinary)
	rw.WriteHeader(http.StatusOK)

	_, err = rw.Write(data)
	if err != nil {
		s.logger.WarnContext(hr.Context(), "snapshot write failed", "error", err)
	}
}

func (s *Server) handleMerge(rw http.ResponseWriter, hr *http.Request) {
	data, err := s.readBody(rw, hr)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	name := hr.PathValue("name")

	n, err := s.reg.Merge(hr.Context(), name, data)
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, countResponse{Name: name, N: n})
}

func (s *Server) handleFlush(rw http.ResponseWriter, hr *http.Request) {
	flushed, err := s.reg.Flush(hr.Context())
	if err != nil {
		s.writeError(hr.Context(), rw, err)

		return
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, flushResponse{Flushed: flushed})
}
