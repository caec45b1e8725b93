package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shaitools891-svg/ME-Dictionary/internal/dictionary"
)

func (s *Server) searchDictionary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}
	lang := q.Get("language")
	if lang == "" {
		lang = dictionary.LangEnglish
	}
	if !dictionary.ValidLanguage(lang) {
		writeError(w, http.StatusBadRequest, "Unsupported language")
		return
	}

	results, err := s.store.Search(r.Context(), query, lang)
	if err != nil {
		s.fail(w, r, "Failed to search dictionary", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.Entry(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, dictionary.ErrNotFound):
		writeError(w, http.StatusNotFound, "Dictionary entry not found")
	case err != nil:
		s.fail(w, r, "Failed to get dictionary entry", err)
	default:
		writeJSON(w, http.StatusOK, entry)
	}
}

func (s *Server) listCustomWords(w http.ResponseWriter, r *http.Request) {
	words, err := s.store.ListCustomWords(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.fail(w, r, "Failed to get custom words", err)
		return
	}
	writeJSON(w, http.StatusOK, words)
}

func (s *Server) createCustomWord(w http.ResponseWriter, r *http.Request) {
	var in dictionary.NewCustomWord
	if err := decode(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid custom word data")
		return
	}

	word, err := s.store.CreateCustomWord(r.Context(), in)
	switch {
	case errors.Is(err, dictionary.ErrInvalid):
		writeError(w, http.StatusBadRequest, "Invalid custom word data")
	case err != nil:
		s.fail(w, r, "Failed to create custom word", err)
	default:
		writeJSON(w, http.StatusCreated, word)
	}
}

func (s *Server) updateCustomWord(w http.ResponseWriter, r *http.Request) {
	var patch dictionary.CustomWordPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid custom word data")
		return
	}

	word, err := s.store.UpdateCustomWord(r.Context(), r.PathValue("id"), patch)
	switch {
	case errors.Is(err, dictionary.ErrNotFound):
		writeError(w, http.StatusNotFound, "Custom word not found")
	case errors.Is(err, dictionary.ErrInvalid):
		writeError(w, http.StatusBadRequest, "Invalid custom word data")
	case err != nil:
		s.fail(w, r, "Failed to update custom word", err)
	default:
		writeJSON(w, http.StatusOK, word)
	}
}

func (s *Server) deleteCustomWord(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteCustomWord(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, dictionary.ErrNotFound):
		writeError(w, http.StatusNotFound, "Custom word not found")
	case err != nil:
		s.fail(w, r, "Failed to delete custom word", err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) listPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.store.ListPackages(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to get offline packages", err)
		return
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (s *Server) updatePackage(w http.ResponseWriter, r *http.Request) {
	var patch dictionary.PackagePatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid offline package data")
		return
	}

	pkg, err := s.store.UpdatePackage(r.Context(), r.PathValue("id"), patch)
	switch {
	case errors.Is(err, dictionary.ErrNotFound):
		writeError(w, http.StatusNotFound, "Offline package not found")
	case err != nil:
		s.fail(w, r, "Failed to update offline package", err)
	default:
		writeJSON(w, http.StatusOK, pkg)
	}
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.User(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, dictionary.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case err != nil:
		s.fail(w, r, "Failed to get user", err)
	default:
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in dictionary.NewUser
	if err := decode(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user data")
		return
	}

	user, err := s.store.CreateUser(r.Context(), in)
	switch {
	case errors.Is(err, dictionary.ErrInvalid):
		writeError(w, http.StatusBadRequest, "Invalid user data")
	case errors.Is(err, dictionary.ErrConflict):
		writeError(w, http.StatusConflict, "Username already taken")
	case err != nil:
		s.fail(w, r, "Failed to create user", err)
	default:
		writeJSON(w, http.StatusCreated, user)
	}
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var patch dictionary.UserPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user data")
		return
	}

	user, err := s.store.UpdateUser(r.Context(), r.PathValue("id"), patch)
	switch {
	case errors.Is(err, dictionary.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, dictionary.ErrInvalid):
		writeError(w, http.StatusBadRequest, "Invalid user data")
	case errors.Is(err, dictionary.ErrConflict):
		writeError(w, http.StatusConflict, "Username already taken")
	case err != nil:
		s.fail(w, r, "Failed to update user", err)
	default:
		writeJSON(w, http.StatusOK, user)
	}
}
