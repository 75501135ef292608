package handler

import (
	"time"

	"custodia/internal/user"
)

type createUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type createUserResponse struct {
	ID string `json:"id"`
}

type updateUserRequest struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

type updateUserResponse struct {
	NameChanged        bool   `json:"nameChanged"`
	EmailChangeStarted bool   `json:"emailChangeStarted"`
	ConfirmationToken  string `json:"confirmationToken,omitempty"`
}

type confirmEmailRequest struct {
	Token string `json:"token"`
}

type userResponse struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	PendingEmail  string `json:"pendingEmail,omitempty"`
	IsActive      bool   `json:"isActive"`
	CreatedAtUtc  string `json:"createdAtUtc"`
	ModifiedAtUtc string `json:"modifiedAtUtc"`
	DeletedAtUtc  string `json:"deletedAtUtc,omitempty"`
	LastLoginAt   string `json:"lastLoginAt,omitempty"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
}

type logEntryResponse struct {
	ID             string `json:"id"`
	Action         string `json:"action"`
	PerformedBy    string `json:"performedBy"`
	PerformedAtUtc string `json:"performedAtUtc"`
	OriginalValues string `json:"originalValues,omitempty"`
	NewValues      string `json:"newValues,omitempty"`
}

type listLogsResponse struct {
	Entries []logEntryResponse `json:"entries"`
}

func toUserResponse(account *user.UserAccount) userResponse {
	res := userResponse{
		ID:            account.ID.String(),
		FirstName:     account.FirstName.String(),
		LastName:      account.LastName.String(),
		FullName:      account.FullName(),
		Email:         account.Email.String(),
		PendingEmail:  account.PendingEmail.String(),
		IsActive:      account.IsActive(),
		CreatedAtUtc:  account.Audit.CreatedAtUtc.Format(time.RFC3339Nano),
		ModifiedAtUtc: account.Audit.ModifiedAtUtc.Format(time.RFC3339Nano),
	}
	if account.Audit.IsDeleted() {
		res.DeletedAtUtc = account.Audit.DeletedAtUtc.Format(time.RFC3339Nano)
	}
	if !account.LastLoginAt.IsZero() {
		res.LastLoginAt = account.LastLoginAt.Format(time.RFC3339Nano)
	}
	return res
}

func toLogEntryResponse(entry *user.AccountLog) logEntryResponse {
	return logEntryResponse{
		ID:             entry.ID.String(),
		Action:         entry.Action.String(),
		PerformedBy:    entry.PerformedBy.String(),
		PerformedAtUtc: entry.PerformedAtUtc.Format(time.RFC3339Nano),
		OriginalValues: entry.OriginalValues,
		NewValues:      entry.NewValues,
	}
}
