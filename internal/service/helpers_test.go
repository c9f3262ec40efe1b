package service

func fptr(v float64) *float64 { return &v }

func bptr(v bool) *bool { return &v }
