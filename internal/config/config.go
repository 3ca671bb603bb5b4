package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	Gateway Gateway `envPrefix:"ABACATEPAY_"`
	Webhook Webhook `envPrefix:"WEBHOOK_"`
	Admin   Admin   `envPrefix:"ADMIN_"`
	Mail    Mail    `envPrefix:"MAIL_"`
	Product Product `envPrefix:"PRODUCT_"`
}

type Gateway struct {
	BaseAPIURL    string        `env:"BASE_API_URL" envDefault:"https://api.abacatepay.com/v1"`
	APIKey        string        `env:"API_KEY"`
	ReturnURL     string        `env:"RETURN_URL"`
	CompletionURL string        `env:"COMPLETION_URL"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

type Webhook struct {
	Secret string `env:"SECRET"`
}

type Admin struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Mail struct {
	APIURL string `env:"API_URL"`
	APIKey string `env:"API_KEY"`
	From   string `env:"FROM" envDefault:"no-reply@course-checkout.example"`
}

// Product is the single course offering sold by this deployment.
// One product, one currency, one-time charge.
type Product struct {
	ExternalID  string `env:"EXTERNAL_ID" envDefault:"prod-1234"`
	Name        string `env:"NAME" envDefault:"Assinatura de Programa Fitness"`
	Description string `env:"DESCRIPTION" envDefault:"Acesso ao programa fitness premium por 1 mês."`
	PriceCents  int32  `env:"PRICE_CENTS" envDefault:"2000"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
