package crazyserver

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type outMessage struct {
	Source string                 `json:"source"`
	Data   map[string]interface{} `json:"data"`
}

type socket struct {
	socketType string
	name       string
	out        chan<- outMessage
}

type socketIndexResp struct {
	Sockets []string `json:"sockets"`
}

const socketBufferSize = 16

func (s *Server) socketsInitRoute(r *mux.Router) {
	r.HandleFunc("/sockets", s.socketsIndexHandle).Methods("GET")
	r.HandleFunc("/sockets/websocket", s.websocketIndexHandle).Methods("GET")
}

func (s *Server) socketNames(prefix string) []string {
	s.socketsLock.Lock()
	defer s.socketsLock.Unlock()

	names := make([]string, 0, len(s.sockets))
	for name, sk := range s.sockets {
		if prefix == "" || sk.socketType == prefix {
			names = append(names, sk.socketType+"/"+name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Server) socketsIndexHandle(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, socketIndexResp{s.socketNames("")})
}

// socketSendData broadcasts data to all sockets. A socket whose buffer is
// full misses the message.
func (s *Server) socketSendData(source string, data interface{}) {
	// converting the data struct in a json compatible map
	gdata := make(map[string]interface{})
	jsondata, _ := json.Marshal(data)
	json.Unmarshal(jsondata, &gdata)

	s.socketsLock.Lock()
	defer s.socketsLock.Unlock()

	for _, sk := range s.sockets {
		select {
		case sk.out <- outMessage{source, gdata}:
		default:
		}
	}
}

func (s *Server) socketRemove(name string) {
	s.socketsLock.Lock()
	defer s.socketsLock.Unlock()

	if sk, ok := s.sockets[name]; ok {
		delete(s.sockets, name)
		close(sk.out)
	}
}

func (s *Server) closeSockets() {
	s.socketsLock.Lock()
	names := make([]string, 0, len(s.sockets))
	for name := range s.sockets {
		names = append(names, name)
	}
	s.socketsLock.Unlock()

	for _, name := range names {
		s.socketRemove(name)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) websocketIndexHandle(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		respondJSON(w, http.StatusOK, socketIndexResp{s.socketNames("websocket")})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	out := make(chan outMessage, socketBufferSize)

	s.socketsLock.Lock()
	name := fmt.Sprintf("websocket%d", s.socketsMaxIndex)
	s.socketsMaxIndex++
	s.sockets[name] = socket{
		socketType: "websocket",
		name:       name,
		out:        out,
	}
	s.socketsLock.Unlock()

	log.Println(name, "connected")

	// out routine, ends when the socket is removed
	go func() {
		defer conn.Close()
		for message := range out {
			if err := conn.WriteJSON(message); err != nil {
				log.Println(name, "OUT error, disconnecting!")
				s.socketRemove(name)
				break
			}
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	// in routine, only there to notice the peer going away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Println(name, "disconnected")
				s.socketRemove(name)
				return
			}
		}
	}()

	s.socketSendData("motors", s.motorsState())
}
