package api

import (
	"net/http"
)

type ServerInfoHandler struct {
	serverName string
	pageSize   int
}

func NewServerInfoHandler(name string, pageSize int) *ServerInfoHandler {
	return &ServerInfoHandler{serverName: name, pageSize: pageSize}
}

type ServerInfoResponse struct {
	Name           string `json:"name"`
	DialogPageSize int    `json:"dialogPageSize"`
}

// GET /api/v1/server/info
func (h *ServerInfoHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ServerInfoResponse{
		Name:           h.serverName,
		DialogPageSize: h.pageSize,
	})
}
