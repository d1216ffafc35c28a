package relay

type joinRequest struct {
	client *Client
	chatID string
}

type delivery struct {
	chatID  string
	payload []byte
}

type listForRequest struct {
	userID string
	reply  chan []string
}

// Stats is a point-in-time snapshot of the hub state, served on /stats.
type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Rooms       int `json:"rooms"`
}

// Hub owns every live client, the user→connection registry and the
// per-conversation room index. All state is mutated only inside Run, so the
// rest of the service talks to the hub exclusively through its channels.
type Hub struct {
	clients  map[*Client]bool
	rooms    map[string]map[*Client]struct{}
	registry *Registry

	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	deliver    chan delivery
	snapshots  chan chan Stats
	listFor    chan listForRequest
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]struct{}),
		registry:   NewRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		deliver:    make(chan delivery),
		snapshots:  make(chan chan Stats),
		listFor:    make(chan listForRequest),
	}
}

// Register admits an authenticated client into the hub.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister tears a client down. Safe to call more than once.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Join adds the client to the room for chatID.
func (h *Hub) Join(c *Client, chatID string) {
	h.join <- joinRequest{client: c, chatID: chatID}
}

// Broadcast delivers payload to every current member of chatID's room.
// Deliveries to a fixed room happen in the order Broadcast was called.
func (h *Hub) Broadcast(chatID string, payload []byte) {
	h.deliver <- delivery{chatID: chatID, payload: payload}
}

// Snapshot returns current connection/user/room counts.
func (h *Hub) Snapshot() Stats {
	ch := make(chan Stats, 1)
	h.snapshots <- ch
	return <-ch
}

// ConnectionsFor returns the connection ids currently held for a user.
func (h *Hub) ConnectionsFor(userID string) []string {
	req := listForRequest{userID: userID, reply: make(chan []string, 1)}
	h.listFor <- req
	return <-req.reply
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.registry.Register(client.userID, client.id)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case req := <-h.join:
			if _, ok := h.clients[req.client]; !ok {
				break
			}
			room, ok := h.rooms[req.chatID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[req.chatID] = room
			}
			room[req.client] = struct{}{}
			req.client.rooms[req.chatID] = struct{}{}

		case d := <-h.deliver:
			for client := range h.rooms[d.chatID] {
				select {
				case client.send <- d.payload:
				default:
					// Slow consumer: disconnect rather than buffer forever.
					h.drop(client)
				}
			}

		case req := <-h.listFor:
			req.reply <- h.registry.ListFor(req.userID)

		case ch := <-h.snapshots:
			ch <- Stats{
				Connections: h.registry.ConnCount(),
				Users:       h.registry.UserCount(),
				Rooms:       len(h.rooms),
			}
		}
	}
}

// drop removes a client from every room and the registry and closes it.
// Must only be called from Run.
func (h *Hub) drop(client *Client) {
	for chatID := range client.rooms {
		room := h.rooms[chatID]
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, chatID)
		}
	}
	h.registry.Unregister(client.userID, client.id)
	delete(h.clients, client)
	close(client.done)
	_ = client.conn.Close()
}
