package api

import (
	"crypto/tls"
	"crypto/x509"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// KafkaAuth - параметры подключения к управляемому Kafka (SASL/PLAIN поверх TLS)
type KafkaAuth struct {
	Username string
	Password string
	CACert   string // PEM; пусто = системные сертификаты
}

// CreateKafkaDialer создает dialer для Kafka
// С SASL TLS включается всегда; с одним CA сертификатом тоже
func CreateKafkaDialer(auth KafkaAuth) *kafka.Dialer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	useSASL := auth.Username != "" && auth.Password != ""
	if useSASL {
		dialer.SASLMechanism = plain.Mechanism{Username: auth.Username, Password: auth.Password}
		log.Printf("🔐 Kafka: SASL/PLAIN аутентификация включена (username: %s)", auth.Username)
	}

	if !useSASL && auth.CACert == "" {
		return dialer
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if auth.CACert != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(auth.CACert)) {
			tlsConfig.RootCAs = pool
			log.Printf("🔒 Kafka: TLS с CA сертификатом включен")
		} else {
			log.Printf("⚠️ Kafka: не удалось распарсить CA сертификат, используем системные сертификаты")
		}
	} else {
		log.Printf("🔒 Kafka: TLS включен (системные сертификаты)")
	}
	dialer.TLS = tlsConfig
	return dialer
}

// ParseKafkaBrokers парсит строку с брокерами через запятую
func ParseKafkaBrokers(brokers string) []string {
	var result []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			result = append(result, broker)
		}
	}
	return result
}
