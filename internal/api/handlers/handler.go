package handlers

import (
	"database/sql"

	"github.com/jart/sparkles/internal/proposal"
	"github.com/jart/sparkles/internal/signup"
	"github.com/jart/sparkles/internal/verify"
	"github.com/jart/sparkles/internal/workgroup"
)

type Handler struct {
	db         *sql.DB
	verifier   *verify.Service
	signups    *signup.Service
	proposals  *proposal.Service
	workgroups *workgroup.Service
}

func NewHandler(db *sql.DB, verifier *verify.Service, signups *signup.Service, proposals *proposal.Service, workgroups *workgroup.Service) *Handler {
	return &Handler{
		db:         db,
		verifier:   verifier,
		signups:    signups,
		proposals:  proposals,
		workgroups: workgroups,
	}
}
