package domain

// Document is the whole persisted state: every hospital keyed by its ID.
type Document struct {
	Hospitals map[string]*Hospital `json:"hospitals"`
}

type Hospital struct {
	Users  map[string]*User `json:"users"`
	Notes  []Note           `json:"notes"`
	Alerts []Alert          `json:"alerts"`
	Chats  Chats            `json:"chats"`
}

type Chats struct {
	General map[string][]Message            `json:"general"`
	Direct  map[string]map[string][]Message `json:"direct"`
}

func NewDocument() *Document {
	return &Document{Hospitals: make(map[string]*Hospital)}
}

func NewHospital() *Hospital {
	h := &Hospital{}
	h.normalize()
	return h
}

// Normalize fills in every collection a loaded document may be missing, so
// callers never meet a nil map.
func (d *Document) Normalize() {
	if d.Hospitals == nil {
		d.Hospitals = make(map[string]*Hospital)
	}
	for id, h := range d.Hospitals {
		if h == nil {
			h = &Hospital{}
			d.Hospitals[id] = h
		}
		h.normalize()
	}
}

func (h *Hospital) normalize() {
	if h.Users == nil {
		h.Users = make(map[string]*User)
	}
	if h.Notes == nil {
		h.Notes = []Note{}
	}
	if h.Alerts == nil {
		h.Alerts = []Alert{}
	}
	if h.Chats.General == nil {
		h.Chats.General = make(map[string][]Message)
	}
	if h.Chats.Direct == nil {
		h.Chats.Direct = make(map[string]map[string][]Message)
	}
	for key, u := range h.Users {
		if u == nil {
			delete(h.Users, key)
			continue
		}
		if u.AssignedClinicians == nil {
			u.AssignedClinicians = []string{}
		}
	}
}

func (h *Hospital) User(username string, role Role) (*User, bool) {
	u, ok := h.Users[UserKey(username, role)]
	return u, ok
}

// Clone deep-copies the hospital so callers can read it without holding the
// service lock.
func (h *Hospital) Clone() Hospital {
	out := Hospital{
		Users:  make(map[string]*User, len(h.Users)),
		Notes:  make([]Note, 0, len(h.Notes)),
		Alerts: append([]Alert{}, h.Alerts...),
		Chats: Chats{
			General: make(map[string][]Message, len(h.Chats.General)),
			Direct:  make(map[string]map[string][]Message, len(h.Chats.Direct)),
		},
	}
	for key, u := range h.Users {
		c := u.Clone()
		out.Users[key] = &c
	}
	for _, n := range h.Notes {
		out.Notes = append(out.Notes, n.Clone())
	}
	for patient, msgs := range h.Chats.General {
		out.Chats.General[patient] = append([]Message{}, msgs...)
	}
	for patient, threads := range h.Chats.Direct {
		copied := make(map[string][]Message, len(threads))
		for clinician, msgs := range threads {
			copied[clinician] = append([]Message{}, msgs...)
		}
		out.Chats.Direct[patient] = copied
	}
	return out
}

func (d *Document) Clone() *Document {
	out := NewDocument()
	for id, h := range d.Hospitals {
		c := h.Clone()
		out.Hospitals[id] = &c
	}
	return out
}
