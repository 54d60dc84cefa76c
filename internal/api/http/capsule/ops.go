package capsule

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "capsules-create",
		Method:      http.MethodPost,
		Path:        "/api/capsules",
		Summary:     "Create a capsule",
		Tags:        []string{"capsules"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listOwnedOp() huma.Operation {
	return huma.Operation{
		OperationID: "capsules-list",
		Method:      http.MethodGet,
		Path:        "/api/capsules",
		Summary:     "List own capsules",
		Tags:        []string{"capsules"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listReceivedOp() huma.Operation {
	return huma.Operation{
		OperationID: "capsules-list-received",
		Method:      http.MethodGet,
		Path:        "/api/capsules/received",
		Summary:     "List capsules addressed to the caller",
		Tags:        []string{"capsules"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "capsules-get",
		Method:      http.MethodGet,
		Path:        "/api/capsules/{id}",
		Summary:     "Get a capsule",
		Tags:        []string{"capsules"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "capsules-update",
		Method:      http.MethodPatch,
		Path:        "/api/capsules/{id}",
		Summary:     "Edit a capsule",
		Description: "Edits are rejected once the capsule is within one hour of its unlock date.",
		Tags:        []string{"capsules"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "capsules-delete",
		Method:      http.MethodDelete,
		Path:        "/api/capsules/{id}",
		Summary:     "Delete a capsule",
		Description: "Deletion is rejected within 24 hours of the unlock date, and allowed again after unlock.",
		Tags:        []string{"capsules"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
