// Package application contém os casos de uso do gateway (orquestração),
// dependendo apenas de contratos do pacote domain.
//
// Não conhece HTTP nem Redis: recebe domain.Request já decodificada e
// devolve resultado ou erro classificado.
package application
