package tracker

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/nats-io/nats.go"
)

//runLocationListener subscribes to every location update published under subject and hands them to hub.
//Ends the NATS subscription and returns on shutdownSignal
func runLocationListener(
	log *log.Logger,
	wg *sync.WaitGroup,
	natsConn *nats.Conn,
	hub *wsHub,
	subject string,
	shutdownSignal chan bool) {
	defer wg.Done()

	ch := make(chan *nats.Msg, 64)
	log.Printf("Subscribing to location updates on subject:%s.> on nats: %v\n", subject, natsConn.Servers())
	sub, err := natsConn.ChanSubscribe(subject+".>", ch)
	if err != nil {
		log.Printf("Unable to establish subscription to nats server: %v\n", err)
		<-shutdownSignal
		return
	}

	for {
		select {
		case msg := <-ch:
			processLocationUpdateFromMsg(log, msg, hub)
		case <-shutdownSignal:
			log.Printf("ending location listener on shutdown signal\n")
			err = sub.Unsubscribe()
			if err != nil {
				log.Printf("Error unsubscribing to nats:%s", err)
			}
			return
		}
	}
}

//processLocationUpdateFromMsg un-marshals transit.LocationUpdate from nats.Msg and broadcasts it
func processLocationUpdateFromMsg(log *log.Logger, msg *nats.Msg, hub *wsHub) {
	var update transit.LocationUpdate
	err := json.Unmarshal(msg.Data, &update)
	if err != nil {
		log.Printf("error parsing LocationUpdate: %s, payload:%s", err, string(msg.Data))
		return
	}
	hub.publish(update)
}
