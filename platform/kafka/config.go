package kafka

// Config параметры подключения к Kafka для публикации аудит-событий
type Config struct {
	// Brokers список брокеров через запятую: "broker1:9092,broker2:9092".
	// Пустой список заполняется дефолтом окружения (см. DefaultBrokers).
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// Topic топик событий paypal.transaction.recorded
	Topic string `env:"KAFKA_PAYPAL_TRANSACTIONS_TOPIC" envDefault:"paypal.transactions"`
}

// DefaultBrokers возвращает брокеры по умолчанию для окружения:
// localhost:19092 при запуске на хосте, kafka:9092 внутри docker сети
func DefaultBrokers(docker bool) []string {
	if docker {
		return []string{"kafka:9092"}
	}
	return []string{"localhost:19092"}
}
