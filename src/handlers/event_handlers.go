package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	m "eventconnect_services/src/models"
	"eventconnect_services/src/services"

	"github.com/gorilla/mux"
)

const maxUploadBytes = 10 << 20

var errBadForm = errors.New("Invalid request body")

// eventForm is an event write as sent by the client, either as a multipart
// form with an "image" file or as JSON. Nil fields were not sent.
type eventForm struct {
	Name         *string         `json:"name"`
	Location     *string         `json:"location"`
	Description  *string         `json:"description"`
	Date         *string         `json:"date"`
	Time         *string         `json:"time"`
	Participants []m.UserSimple  `json:"participants"`
	Photo        *services.Photo `json:"-"`
}

// apply overlays the sent fields on base.
func (form eventForm) apply(base m.EventFields) m.EventFields {
	for _, field := range []struct {
		value  *string
		target *string
	}{
		{form.Name, &base.Name},
		{form.Location, &base.Location},
		{form.Description, &base.Description},
		{form.Date, &base.Date},
		{form.Time, &base.Time},
	} {
		if field.value != nil {
			*field.target = *field.value
		}
	}
	return base
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func parseEventForm(r *http.Request) (eventForm, error) {
	var form eventForm
	if !isMultipart(r) {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&form); err != nil {
			return eventForm{}, errBadForm
		}
		return form, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return eventForm{}, errBadForm
	}
	value := func(key string) *string {
		values, ok := r.MultipartForm.Value[key]
		if !ok || len(values) == 0 {
			return nil
		}
		return &values[0]
	}
	form.Name = value("name")
	form.Location = value("location")
	form.Description = value("description")
	form.Date = value("date")
	form.Time = value("time")
	if participants := value("participants"); participants != nil {
		if err := json.Unmarshal([]byte(*participants), &form.Participants); err != nil {
			return eventForm{}, errBadForm
		}
	}

	photo, err := formPhoto(r, "image")
	if err != nil {
		return eventForm{}, err
	}
	form.Photo = photo
	return form, nil
}

// formPhoto reads the named file of a parsed multipart form, or nil when the
// form has none.
func formPhoto(r *http.Request, key string) (*services.Photo, error) {
	file, header, err := r.FormFile(key)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errBadForm
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errBadForm
	}
	return &services.Photo{Data: data, ContentType: header.Header.Get("Content-Type")}, nil
}

func EventsEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		events := env.events(current)

		switch r.Method {
		case http.MethodGet:
			filter := m.ParseEventFilter(r.URL.Query().Get("filter"))
			WriteJSON(w, http.StatusOK, events.ListEvents(r.Context(), filter))
		case http.MethodPost:
			form, err := parseEventForm(r)
			if err != nil {
				WriteErrorToWriter(w, http.StatusBadRequest, err.Error())
				return
			}
			event, err := events.CreateEvent(r.Context(), form.apply(m.EventFields{}), form.Photo)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusCreated, event)
		default:
			methodNotAllowed(w)
		}
	})
}

// EventEndpointHandler serves one event. A PATCH runs a full editor session:
// the event is loaded, the sent fields are overlaid on it and it is saved.
func EventEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		id := mux.Vars(r)["id"]
		events := env.events(current)

		switch r.Method {
		case http.MethodGet:
			event, err := events.LoadEvent(r.Context(), id)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, event)
		case http.MethodPatch:
			form, err := parseEventForm(r)
			if err != nil {
				WriteErrorToWriter(w, http.StatusBadRequest, err.Error())
				return
			}
			editor := services.NewEventEditor(events)
			loaded, err := editor.Load(r.Context(), id)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			base := m.EventFields{
				Name:        loaded.Name,
				Location:    loaded.Location,
				Description: loaded.Description,
				Date:        loaded.Date,
				Time:        loaded.Time,
			}
			saved, err := editor.Save(r.Context(), form.apply(base), form.Photo, form.Participants)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusOK, saved)
		default:
			methodNotAllowed(w)
		}
	})
}

func ParticipantsEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		events := env.events(current)
		event, err := events.LoadEvent(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		ids := make([]string, 0, len(event.Participants))
		for _, participant := range event.Participants {
			ids = append(ids, participant.UserID)
		}
		participants, err := events.LoadEventParticipants(r.Context(), ids)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, participants)
	})
}

type photoResponse struct {
	URL string `json:"url"`
}

// PhotosEndpointHandler adds a photo sent as a multipart "photo" file or as
// a raw image body, and removes one by url.
func PhotosEndpointHandler(env *Env) http.Handler {
	return withUser(func(w http.ResponseWriter, r *http.Request, current m.UserSimple) {
		id := mux.Vars(r)["id"]
		events := env.events(current)

		switch r.Method {
		case http.MethodPost:
			photo, err := requestPhoto(r)
			if err != nil {
				WriteErrorToWriter(w, http.StatusBadRequest, err.Error())
				return
			}
			url, err := events.AddPhoto(r.Context(), id, photo)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			WriteJSON(w, http.StatusCreated, photoResponse{URL: url})
		case http.MethodDelete:
			if err := events.RemovePhoto(r.Context(), id, r.URL.Query().Get("url")); err != nil {
				writeServiceError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w)
		}
	})
}

func requestPhoto(r *http.Request) (services.Photo, error) {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return services.Photo{}, errBadForm
		}
		photo, err := formPhoto(r, "photo")
		if err != nil || photo == nil {
			return services.Photo{}, err
		}
		return *photo, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return services.Photo{}, errBadForm
	}
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = ""
	}
	return services.Photo{Data: data, ContentType: contentType}, nil
}
