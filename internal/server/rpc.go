package server

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
	rpcNotFound       = -32001
	rpcConflict       = -32002
	rpcBusy           = -32003
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, nil, &rpcError{Code: rpcParseError, Message: "Parse error"})
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, request.ID, &rpcError{Code: rpcInvalidRequest, Message: "Invalid Request"})
		return
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "simulation.run":
		var req SimulateRequest
		if err = s.decodeParams(request.Params, &req); err == nil {
			result, err = s.simulate(req)
		}
	case "simulation.step":
		var req StepRequest
		if err = s.decodeParams(request.Params, &req); err == nil {
			result, err = s.step(req)
		}
	case "experiment.start":
		var req ExperimentRequest
		if err = s.decodeParams(request.Params, &req); err == nil {
			result, err = s.startExperiment(req)
		}
	case "experiment.status":
		var ref ExperimentRef
		if err = s.decodeParams(request.Params, &ref); err == nil {
			result, err = s.experimentStatus(ref)
		}
	case "experiment.cancel":
		var ref ExperimentRef
		if err = s.decodeParams(request.Params, &ref); err == nil {
			result, err = s.cancelExperiment(ref)
		}
	case "experiment.list":
		result = s.listExperiments()
	default:
		s.respondWithError(w, request.ID, &rpcError{Code: rpcMethodNotFound, Message: "Method not found"})
		return
	}

	if err != nil {
		s.respondWithError(w, request.ID, rpcErrorOf(err))
		return
	}

	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: request.ID, Result: result})
}

// decodeParams accepts params either as an object or as a one-element
// positional array holding that object.
func (s *Server) decodeParams(raw json.RawMessage, dst interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return decode(bytes.NewReader([]byte("{}")), dst)
	}
	if raw[0] == '[' {
		var positional []json.RawMessage
		if err := json.Unmarshal(raw, &positional); err != nil || len(positional) != 1 {
			return errInvalidRequest
		}
		raw = positional[0]
	}
	return decode(bytes.NewReader(raw), dst)
}

func rpcErrorOf(err error) *rpcError {
	code, msg := rpcServerError, "Server error"
	switch httpStatus(err) {
	case http.StatusBadRequest:
		code, msg = rpcInvalidParams, "Invalid params"
	case http.StatusNotFound:
		code, msg = rpcNotFound, "Not found"
	case http.StatusConflict:
		code, msg = rpcConflict, "Conflict"
	case http.StatusTooManyRequests:
		code, msg = rpcBusy, "Too many experiments"
	}
	return &rpcError{Code: code, Message: msg, Data: err.Error()}
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, id interface{}, rerr *rpcError) {
	fields := map[string]interface{}{
		"code":    rerr.Code,
		"message": rerr.Message,
	}
	if rerr.Data != nil {
		fields["data"] = rerr.Data
	}
	if rerr.Code == rpcServerError {
		s.logger.Error("RPC error", fields)
	} else {
		s.logger.Debug("RPC error", fields)
	}

	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: id, Error: rerr})
}
