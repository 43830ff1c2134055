// Package eventstreamutils builds a Publisher from configuration.
package eventstreamutils

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/memoria/pkg/eventstream"
	"github.com/papercomputeco/memoria/pkg/eventstream/kafka"
	"github.com/papercomputeco/memoria/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string

	// Brokers is a comma separated broker list.
	Brokers string
	Topic   string
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		var brokers []string
		for _, b := range strings.Split(o.Brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		return kafka.NewPublisher(kafka.Config{Brokers: brokers, Topic: o.Topic})
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}
