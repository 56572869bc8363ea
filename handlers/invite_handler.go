package handlers

import (
	"errors"
	"net/http"

	"github.com/rgalymov/gameclub-backend/middleware"
	"github.com/rgalymov/gameclub-backend/services"
)

type InviteHandler struct {
	memberService services.MemberService
}

func NewInviteHandler(memberService services.MemberService) *InviteHandler {
	return &InviteHandler{memberService: memberService}
}

func (h *InviteHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	clubID, err := getIDFromURL(r, "clubID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		UserID int `json:"user_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	invite, err := h.memberService.InviteMember(r.Context(), clubID, input.UserID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"invite": invite,
	}

	err = writeJSON(w, http.StatusCreated, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InviteHandler) RespondToInvite(w http.ResponseWriter, r *http.Request) {
	inviteID, err := getIDFromURL(r, "inviteID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		Accept *bool `json:"accept"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Accept == nil {
		badRequestResponse(w, r, errors.New("accept is required"))
		return
	}

	invite, err := h.memberService.RespondToInvite(r.Context(), inviteID, currentUserID, *input.Accept)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"invite": invite,
	}

	err = writeJSON(w, http.StatusOK, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InviteHandler) ListMyInvites(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	invites, err := h.memberService.ListMyInvites(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"invites": invites,
	}

	err = writeJSON(w, http.StatusOK, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}
