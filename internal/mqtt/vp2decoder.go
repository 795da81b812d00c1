package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"

	"meteodata.example/meteodata-server/internal/decoder/vp2"
	"meteodata.example/meteodata-server/internal/model"
)

// archivesTopicSuffix is the topic suffix that distinguishes a station's
// archive-data topic from its command topic: a station's archive topic is
// "<base>/dmpaft" and commands are published to "<base>".
const archivesTopicSuffix = "/dmpaft"

// clockResetInterval is how often the station clock is resent, matching
// the original daemon's roughly-four-times-a-day cadence.
const clockResetInterval = 6 * time.Hour

// VP2Decoder implements Decoder for Davis Vantage Pro2 stations relayed
// over MQTT via a vp2-to-MQTT bridge. The VP2 binary archive record layout
// itself is out of scope (see internal/decoder/vp2); this type only
// implements the MQTT-side clock/backfill protocol, grounded on the
// original daemon's VP2 MQTT subscriber.
type VP2Decoder struct {
	mu              sync.Mutex
	clockResetTimes map[string]time.Time
}

// NewVP2Decoder returns a ready-to-use VP2 decoder.
func NewVP2Decoder() *VP2Decoder {
	return &VP2Decoder{clockResetTimes: make(map[string]time.Time)}
}

func (d *VP2Decoder) ConnectorSuffix() string { return "vp2" }

func (d *VP2Decoder) Topic(station model.Station) string {
	return fmt.Sprintf("vp2/%s%s", station.ID, archivesTopicSuffix)
}

func (d *VP2Decoder) DecodeMessage(topic string, payload []byte) (model.Observation, error) {
	return vp2.DecodeArchiveRecord(payload)
}

// OnSubscribed implements the subscribe-ack behavior from the original
// VP2MqttSubscriber::handleSubAck: wake the remote scheduler with
// GETTIME, reset its clock, and if the station's cursor is older than one
// polling period, request a backfill with a 2h overlap to tolerate
// repeated short disconnections.
func (d *VP2Decoder) OnSubscribed(ctx context.Context, client mqttlib.Client, topic string, station model.Station) {
	if !strings.HasSuffix(topic, archivesTopicSuffix) {
		return
	}
	stationTopic := strings.TrimSuffix(topic, archivesTopicSuffix)

	client.Publish(stationTopic, 1, false, "GETTIME")
	d.setClock(client, stationTopic, station)

	pollingPeriod := station.PollingPeriod
	if pollingPeriod <= 0 {
		pollingPeriod = time.Minute
	}
	if time.Since(station.Cursor) > pollingPeriod {
		archiveTime := station.Cursor.Add(-2 * time.Hour)
		loc := station.Timezone
		if loc == nil {
			loc = time.UTC
		}
		cmd := "DMPAFT " + archiveTime.In(loc).Format("2006-01-02 15:04")
		client.Publish(stationTopic, 1, false, cmd)
	}
}

// AfterInsert resets the clock roughly every six hours on the station's
// archive topic, matching the original daemon's periodic SETTIME refresh.
func (d *VP2Decoder) AfterInsert(ctx context.Context, client mqttlib.Client, topic string, station model.Station) {
	if !strings.HasSuffix(topic, archivesTopicSuffix) {
		return
	}
	stationTopic := strings.TrimSuffix(topic, archivesTopicSuffix)

	d.mu.Lock()
	last, seen := d.clockResetTimes[stationTopic]
	d.mu.Unlock()
	if seen && time.Since(last) < clockResetInterval {
		return
	}
	d.setClock(client, stationTopic, station)
}

// setClock publishes SETTIME, using UTC wall-clock when the station's
// timezone offseter says it uses UTC, or a bare SETTIME (trusting the
// bridge's local clock) otherwise.
func (d *VP2Decoder) setClock(client mqttlib.Client, stationTopic string, station model.Station) {
	now := time.Now().Truncate(time.Second)
	slog.Info("mqtt vp2: resetting station clock", "station", station.ID)

	usesUTC := station.Timezone == nil || station.Timezone == time.UTC
	if usesUTC {
		client.Publish(stationTopic, 1, false, "SETTIME "+now.UTC().Format("2006-01-02 15:04:05"))
	} else {
		client.Publish(stationTopic, 1, false, "SETTIME")
	}

	d.mu.Lock()
	d.clockResetTimes[stationTopic] = now
	d.mu.Unlock()
}

var _ Decoder = (*VP2Decoder)(nil)
