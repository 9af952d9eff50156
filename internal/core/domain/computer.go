package domain

type GPUUsage struct {
	Memory float64 `json:"memory"`
	Load   float64 `json:"load"`
}

// Usage is a single resource load sample of a computer.
type Usage struct {
	CPU    float64    `json:"cpu"`
	Memory float64    `json:"memory"`
	GPU    []GPUUsage `json:"gpu"`
}

// ComputerUsage holds the mean and peak samples over a time window.
type ComputerUsage struct {
	Mean Usage `json:"mean"`
	Peak Usage `json:"peak"`
}

type Computer struct {
	Name   string `json:"name"`
	GPU    int    `json:"gpu"`
	CPU    int    `json:"cpu"`
	Memory int    `json:"memory"` // In MB
	Usage  *Usage `json:"usage,omitempty"`
}
