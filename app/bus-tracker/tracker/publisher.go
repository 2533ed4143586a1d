package tracker

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/OpenTransitTools/bustracker/business/data/transit"
	"github.com/nats-io/nats.go"
)

//natsLocationPublisher sends transit.LocationUpdate as json to "<subject>.<topic>"
type natsLocationPublisher struct {
	log            *log.Logger
	natsConnection *nats.Conn
	subject        string
}

func makeNatsLocationPublisher(log *log.Logger, natsConnection *nats.Conn, subject string) *natsLocationPublisher {
	return &natsLocationPublisher{
		log:            log,
		natsConnection: natsConnection,
		subject:        subject,
	}
}

func (n *natsLocationPublisher) publish(update transit.LocationUpdate) {
	jsonData, err := json.Marshal(update)
	if err != nil {
		n.log.Printf("failed to marshal LocationUpdate in natsLocationPublisher.publish, error:%v", err)
		return
	}
	err = n.natsConnection.Publish(updateSubject(n.subject, update), jsonData)
	if err != nil {
		n.log.Printf("failed to send %s in natsLocationPublisher.publish, error:%v", update, err)
	}
}

//updateSubject builds the subject an update is published on
func updateSubject(subject string, update transit.LocationUpdate) string {
	return subject + "." + subjectToken(update.Topic())
}

//subjectToken replaces characters that nats does not allow inside a single subject token
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
