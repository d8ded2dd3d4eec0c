// Package websocket streams live match updates to spectators.
//
// A Hub keeps the connected clients of each match. The game service calls
// BroadcastEvent for every engine event and BroadcastState after every step;
// both only enqueue, so the simulation never waits on the network. When the
// queue is full, messages are dropped and counted.
//
// Each frame is one JSON Message:
//
//	{"match_id":"ab12","kind":"event","event":{...},"text":"Home #1 moved (2,8) -> (2,7)"}
//	{"match_id":"ab12","kind":"state","state":{...}}
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(logger))
//	go hub.Run(ctx)
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("match"))
//	})
package websocket
