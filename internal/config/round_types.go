package config

import (
	"fmt"
	"strings"
)

// RoundTypes 房间允许的回合类型
type RoundTypes string

const (
	RoundTypesSong   RoundTypes = "Song"
	RoundTypesArtist RoundTypes = "Artist"
	RoundTypesBoth   RoundTypes = "Both"
)

var allRoundTypes = []RoundTypes{RoundTypesSong, RoundTypesArtist, RoundTypesBoth}

// ParseRoundTypes 解析回合类型（忽略大小写）
func ParseRoundTypes(s string) (RoundTypes, error) {
	for _, rt := range allRoundTypes {
		if strings.EqualFold(s, string(rt)) {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown round types %q", s)
}
