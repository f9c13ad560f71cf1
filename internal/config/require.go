package config

import (
	"fmt"
	"log"
)

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// Validate reports settings that would only fail later at first use.
func (c Config) Validate() error {
	switch c.CartStore {
	case CartStoreSQL, CartStoreRedis, CartStoreMongo:
	default:
		return fmt.Errorf("CART_STORE must be one of %s, %s, %s; got %q", CartStoreSQL, CartStoreRedis, CartStoreMongo, c.CartStore)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.ServerPort)
	}
	if c.CartClearAttempts < 1 {
		return fmt.Errorf("CART_CLEAR_ATTEMPTS must be at least 1, got %d", c.CartClearAttempts)
	}
	return nil
}
