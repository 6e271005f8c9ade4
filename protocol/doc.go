// Package protocol 定义客户端与联邦学习协调器之间的线协议。
//
// 本包提供 ClientMessage/ServerMessage 帧类型（tagged union，每帧最多
// 携带一个变体）、张量的线上表示与转换，以及基于 WebSocket 的
// Stream/Dialer 传输实现，JSON 编帧。
package protocol
