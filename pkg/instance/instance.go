package instance

import "os"

const fallbackID = "worker-0"

// GetID identifies this process in logs. STOREFRONT_INSTANCE_ID wins, then
// the hostname, which is the pod name under Kubernetes.
func GetID() string {
	if id := os.Getenv("STOREFRONT_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
