// Package tlsutil 集中管理 agentroom 的 TLS 配置，
// LLM HTTP 客户端、Redis、Kafka 与 HTTP 服务端共用同一套加固参数（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
